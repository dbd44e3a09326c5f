// Package htmlscan finds image references in LMS content HTML and rewrites
// alt attributes on write-back.
package htmlscan

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/noah-isme/canvas-alt-text-api/internal/models"
)

// imageExtensions mirrors the raster/vector filename suffixes a typical
// image toolchain registers. Alt text ending in one of these reads as a
// copied filename rather than a description.
var imageExtensions = []string{
	".apng", ".blp", ".bmp", ".bufr", ".bw", ".cur", ".dcx", ".dds", ".dib",
	".emf", ".eps", ".fit", ".fits", ".flc", ".fli", ".ftc", ".ftu", ".gbr",
	".gif", ".grib", ".h5", ".hdf", ".icb", ".icns", ".ico", ".iim", ".im",
	".j2c", ".j2k", ".jfif", ".jp2", ".jpc", ".jpe", ".jpeg", ".jpf", ".jpg",
	".jpx", ".mpeg", ".mpg", ".mpo", ".msp", ".palm", ".pbm", ".pcd", ".pcx",
	".pdf", ".pfm", ".pgm", ".png", ".pnm", ".ppm", ".ps", ".psd", ".pxr",
	".qoi", ".ras", ".rgb", ".rgba", ".sgi", ".tga", ".tif", ".tiff", ".vda",
	".vst", ".webp", ".wmf", ".xbm", ".xpm",
}

// ExtractImages parses an HTML fragment and returns one descriptor per
// image element that needs alt text review.
//
// Elements are skipped when they are decorative (role=presentation), when
// their alt text already looks like a real description source copied from a
// filename (non-empty alt ending in an image extension), or when they have
// no src at all. A src that cannot be resolved to a Canvas file id fails the
// whole extraction; the caller decides whether that sinks the scan.
//
// Empty input yields an empty result, not an error.
func ExtractImages(fragment string) ([]models.ExtractedImage, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}

	nodes, err := parseFragment(fragment)
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}

	var images []models.ExtractedImage
	for _, root := range nodes {
		if err := walkImages(root, func(img *html.Node) error {
			src := attr(img, "src")
			alt := strings.TrimSpace(attr(img, "alt"))
			role := strings.ToLower(strings.TrimSpace(attr(img, "role")))

			if role == "presentation" {
				return nil
			}
			if alt != "" && hasImageExtension(alt) {
				return nil
			}
			if src == "" {
				return nil
			}

			fileID, downloadURL, err := ParseFileSrc(src)
			if err != nil {
				return err
			}
			extracted := models.ExtractedImage{DownloadURL: downloadURL}
			if id, convErr := strconv.ParseInt(fileID, 10, 64); convErr == nil {
				extracted.ImageID = &id
			}
			if alt != "" {
				extracted.AltText = &alt
			}
			images = append(images, extracted)
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return images, nil
}

// ParseFileSrc resolves a Canvas file URL such as
//
//	https://canvas.example.edu/courses/403334/files/42932047/preview?verifier=...
//
// to the file id and a forced raw-download URL. Existing query parameters
// are preserved (first value wins) and download_frd=1 is appended.
func ParseFileSrc(src string) (string, string, error) {
	parsed, err := url.Parse(src)
	if err != nil {
		return "", "", fmt.Errorf("parse image src %q: %w", src, err)
	}

	parts := strings.Split(parsed.Path, "/")
	fileID := ""
	for i, part := range parts {
		if part == "files" && i+1 < len(parts) && parts[i+1] != "" {
			fileID = parts[i+1]
			break
		}
	}
	if fileID == "" {
		return "", "", fmt.Errorf("image src %q: file id not found in URL path", src)
	}

	query := url.Values{}
	for key, values := range parsed.Query() {
		if len(values) > 0 {
			query.Set(key, values[0])
		}
	}
	query.Set("download_frd", "1")

	download := url.URL{
		Scheme:   parsed.Scheme,
		Host:     parsed.Host,
		Path:     fmt.Sprintf("/files/%s/download", fileID),
		RawQuery: query.Encode(),
	}
	return fileID, download.String(), nil
}

// PreviewURL converts a stored raw-download URL back into the preview form
// the live HTML embeds, scoped to the course. Only the verifier parameter
// survives the round trip.
func PreviewURL(downloadURL string, courseID int64) (string, error) {
	parsed, err := url.Parse(downloadURL)
	if err != nil {
		return "", fmt.Errorf("parse image URL %q: %w", downloadURL, err)
	}

	fileID, _, err := ParseFileSrc(downloadURL)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if verifier := parsed.Query().Get("verifier"); verifier != "" {
		query.Set("verifier", verifier)
	}
	preview := url.URL{
		Scheme:   parsed.Scheme,
		Host:     parsed.Host,
		Path:     fmt.Sprintf("/courses/%d/files/%s/preview", courseID, fileID),
		RawQuery: query.Encode(),
	}
	return preview.String(), nil
}

func hasImageExtension(alt string) bool {
	lower := strings.ToLower(alt)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func parseFragment(fragment string) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(fragment), body)
}

func walkImages(n *html.Node, visit func(*html.Node) error) error {
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		if err := visit(n); err != nil {
			return err
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err := walkImages(child, visit); err != nil {
			return err
		}
	}
	return nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
