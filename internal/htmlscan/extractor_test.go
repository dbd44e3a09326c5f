package htmlscan

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/canvas-alt-text-api/internal/models"
)

func TestExtractImagesEmptyInput(t *testing.T) {
	for _, fragment := range []string{"", "   ", "\n\t"} {
		images, err := ExtractImages(fragment)
		require.NoError(t, err)
		assert.Empty(t, images)
	}
}

func TestExtractImagesSkipsPresentationRole(t *testing.T) {
	fragment := `<p>decor</p><img role="presentation" src="https://canvas.example.edu/courses/1/files/123/preview" alt="alt.png">`
	images, err := ExtractImages(fragment)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestExtractImagesFilenameAltExcluded(t *testing.T) {
	fragment := `
		<img src="https://canvas.example.edu/courses/1/files/111/preview?verifier=v1" alt="image.jpeg">
		<img src="https://canvas.example.edu/courses/1/files/222/preview?verifier=v2" alt="A descriptive alt text">`
	images, err := ExtractImages(fragment)
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.NotNil(t, images[0].ImageID)
	assert.Equal(t, int64(222), *images[0].ImageID)
}

func TestExtractImagesExtensionAgnostic(t *testing.T) {
	for _, ext := range []string{"bufr", "dcx", "png", "tiff", "webp"} {
		fragment := fmt.Sprintf(`<img src="https://canvas.example.edu/files/5/download" alt="chart.%s">`, ext)
		images, err := ExtractImages(fragment)
		require.NoError(t, err)
		assert.Empty(t, images, "alt ending in .%s should be excluded", ext)
	}

	fragment := `<img src="https://canvas.example.edu/files/5/download" alt="A chart of enrollment by term">`
	images, err := ExtractImages(fragment)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestExtractImagesEmptyAltIncluded(t *testing.T) {
	fragment := `<img src="https://canvas.example.edu/courses/9/files/77/preview?verifier=tok" alt="">`
	images, err := ExtractImages(fragment)
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.NotNil(t, images[0].ImageID)
	assert.Equal(t, int64(77), *images[0].ImageID)
	assert.Nil(t, images[0].AltText)
}

func TestExtractImagesMissingSrcSkipped(t *testing.T) {
	fragment := `<img alt=""><img src="https://canvas.example.edu/files/3/download">`
	images, err := ExtractImages(fragment)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestExtractImagesMalformedSrcFailsLoudly(t *testing.T) {
	fragment := `<img src="https://canvas.example.edu/no-file-segment/here">`
	_, err := ExtractImages(fragment)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file id not found")
}

func TestParseFileSrcSynthesizesDownloadURL(t *testing.T) {
	src := "https://canvas.example.edu/courses/403334/files/42932047/preview?verifier=abc123"
	fileID, downloadURL, err := ParseFileSrc(src)
	require.NoError(t, err)
	assert.Equal(t, "42932047", fileID)
	assert.Equal(t, "https://canvas.example.edu/files/42932047/download?download_frd=1&verifier=abc123", downloadURL)
}

func TestParseFileSrcKeepsFirstQueryValue(t *testing.T) {
	src := "https://canvas.example.edu/files/10/preview?verifier=first&verifier=second"
	_, downloadURL, err := ParseFileSrc(src)
	require.NoError(t, err)
	assert.Contains(t, downloadURL, "verifier=first")
	assert.NotContains(t, downloadURL, "second")
}

func TestPreviewURLRoundTrip(t *testing.T) {
	download := "https://canvas.example.edu/files/42932047/download?download_frd=1&verifier=abc123"
	preview, err := PreviewURL(download, 403334)
	require.NoError(t, err)
	assert.Equal(t, "https://canvas.example.edu/courses/403334/files/42932047/preview?verifier=abc123", preview)
}

func TestPreviewURLDropsNonVerifierParams(t *testing.T) {
	download := "https://canvas.example.edu/files/10/download?download_frd=1&wrap=1"
	preview, err := PreviewURL(download, 7)
	require.NoError(t, err)
	assert.Equal(t, "https://canvas.example.edu/courses/7/files/10/preview", preview)
}

func TestApplyAltTextApprovedOnly(t *testing.T) {
	fragment := `<p>intro</p><img src="https://canvas.example.edu/courses/1/files/11/preview?verifier=a"><img src="https://canvas.example.edu/courses/1/files/22/preview?verifier=b" alt="old">`
	images := []models.ImagePayload{
		{
			Action:          models.ActionApprove,
			ApprovedAltText: "A bar chart",
			UpdateURL:       "https://canvas.example.edu/courses/1/files/11/preview?verifier=a",
		},
		{
			Action:    models.ActionSkip,
			UpdateURL: "https://canvas.example.edu/courses/1/files/22/preview?verifier=b",
		},
	}

	updated, err := ApplyAltText(fragment, images)
	require.NoError(t, err)
	assert.Contains(t, updated, `alt="A bar chart"`)
	assert.Contains(t, updated, `alt="old"`)
	assert.Contains(t, updated, "<p>intro</p>")
}

func TestApplyAltTextNoMatchLeavesHTMLUntouched(t *testing.T) {
	fragment := `<img src="https://elsewhere.example.com/pic.png" alt="external">`
	updated, err := ApplyAltText(fragment, []models.ImagePayload{{
		Action:          models.ActionApprove,
		ApprovedAltText: "new",
		UpdateURL:       "https://canvas.example.edu/courses/1/files/11/preview",
	}})
	require.NoError(t, err)
	assert.Contains(t, updated, `alt="external"`)
	assert.NotContains(t, updated, `alt="new"`)
}
