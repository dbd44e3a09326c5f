package canvas

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/canvas-alt-text-api/pkg/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(config.CanvasConfig{
		Domain:      "canvas.example.edu",
		APIToken:    "test-token",
		PageSize:    2,
		HTTPTimeout: 5 * time.Second,
	}, nil)
	httpmock.ActivateNonDefault(c.http)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestListAssignmentsFollowsPagination(t *testing.T) {
	c := newTestClient(t)

	first := httpmock.NewStringResponse(200, `[{"id":1,"name":"HW 1","description":"<p>one</p>"},{"id":2,"name":"HW 2","description":""}]`)
	first.Header.Set("Link", `<https://canvas.example.edu/api/v1/courses/10/assignments?page=2&per_page=2>; rel="next"`)
	second := httpmock.NewStringResponse(200, `[{"id":3,"name":"HW 3","description":"<img src=\"x\">","quiz_id":77}]`)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, `=~^https://canvas\.example\.edu/api/v1/courses/10/assignments`,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
			calls++
			if calls == 1 {
				assert.Equal(t, "2", req.URL.Query().Get("per_page"))
				return first, nil
			}
			return second, nil
		})

	assignments, err := c.ListAssignments(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, assignments, 3)
	assert.Equal(t, int64(3), assignments[2].ID)
	require.NotNil(t, assignments[2].QuizID)
	assert.Equal(t, int64(77), *assignments[2].QuizID)
	assert.Equal(t, 2, calls)
}

func TestListPagesRequestsBody(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, `=~^https://canvas\.example\.edu/api/v1/courses/10/pages`,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "body", req.URL.Query().Get("include[]"))
			return httpmock.NewStringResponse(200, `[{"page_id":5,"url":"intro","title":"Intro","body":"<p>hi</p>"}]`), nil
		})

	pages, err := c.ListPages(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, int64(5), pages[0].PageID)
	assert.Equal(t, "<p>hi</p>", pages[0].Body)
}

func TestListQuizQuestions(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, `=~^https://canvas\.example\.edu/api/v1/courses/10/quizzes/4/questions`,
		httpmock.NewStringResponder(200, `[{"id":9,"quiz_id":4,"question_name":"Q1","question_text":"<p>what</p>"}]`))

	questions, err := c.ListQuizQuestions(context.Background(), 10, 4)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, int64(4), questions[0].QuizID)
}

func TestListAssignmentsSurfacesHTTPError(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, `=~^https://canvas\.example\.edu/api/v1/courses/10/assignments`,
		httpmock.NewStringResponder(500, `{"errors":[{"message":"boom"}]}`))

	_, err := c.ListAssignments(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestEditPageSendsWikiPagePayload(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPut, "https://canvas.example.edu/api/v1/courses/10/pages/5",
		func(req *http.Request) (*http.Response, error) {
			var payload map[string]map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, `<img alt="described">`, payload["wiki_page"]["body"])
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			return httpmock.NewStringResponse(200, `{}`), nil
		})

	err := c.EditPage(context.Background(), 10, 5, `<img alt="described">`)
	require.NoError(t, err)
}

func TestEditQuizQuestionPayloadAndFailure(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPut, "https://canvas.example.edu/api/v1/courses/10/quizzes/4/questions/9",
		func(req *http.Request) (*http.Response, error) {
			var payload map[string]map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, "<p>updated</p>", payload["question"]["question_text"])
			return httpmock.NewStringResponse(401, `{}`), nil
		})

	err := c.EditQuizQuestion(context.Background(), 10, 4, 9, "<p>updated</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestDownloadFileUsesBearerToken(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, "https://canvas.example.edu/files/42/download",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
			return httpmock.NewBytesResponse(200, []byte{0xFF, 0xD8, 0xFF}), nil
		})

	data, err := c.DownloadFile(context.Background(), "https://canvas.example.edu/files/42/download")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, data)
}

func TestDownloadFileRejectsEmptyURL(t *testing.T) {
	c := newTestClient(t)
	_, err := c.DownloadFile(context.Background(), "")
	require.Error(t, err)
}
