// Package canvas is a thin REST client for the LMS content endpoints the
// alt-text pipeline depends on: paged listings, fresh single-object reads,
// HTML field edits and authenticated file downloads.
package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/canvas-alt-text-api/pkg/config"
)

// DefaultPageSize matches the fixed page size the pipeline lists with.
const DefaultPageSize = 100

// Client talks to a single Canvas instance with a bearer token.
type Client struct {
	baseURL  string
	domain   string
	token    string
	pageSize int
	http     *http.Client
	logger   *zap.Logger
}

// NewClient constructs a client from configuration.
func NewClient(cfg config.CanvasConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  fmt.Sprintf("https://%s/api/v1", cfg.Domain),
		domain:   cfg.Domain,
		token:    cfg.APIToken,
		pageSize: pageSize,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Domain returns the configured LMS host, used for same-domain URL checks.
func (c *Client) Domain() string {
	return c.domain
}

// ListAssignments returns every assignment in the course, following
// pagination until exhausted.
func (c *Client) ListAssignments(ctx context.Context, courseID int64) ([]Assignment, error) {
	var out []Assignment
	err := c.paginate(ctx, fmt.Sprintf("%s/courses/%d/assignments", c.baseURL, courseID), nil, func(body []byte) error {
		var page []Assignment
		if err := json.Unmarshal(body, &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list assignments for course %d: %w", courseID, err)
	}
	return out, nil
}

// ListPages returns every page with its body included.
func (c *Client) ListPages(ctx context.Context, courseID int64) ([]Page, error) {
	params := url.Values{"include[]": []string{"body"}}
	var out []Page
	err := c.paginate(ctx, fmt.Sprintf("%s/courses/%d/pages", c.baseURL, courseID), params, func(body []byte) error {
		var page []Page
		if err := json.Unmarshal(body, &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pages for course %d: %w", courseID, err)
	}
	return out, nil
}

// ListQuizzes returns every quiz in the course.
func (c *Client) ListQuizzes(ctx context.Context, courseID int64) ([]Quiz, error) {
	var out []Quiz
	err := c.paginate(ctx, fmt.Sprintf("%s/courses/%d/quizzes", c.baseURL, courseID), nil, func(body []byte) error {
		var page []Quiz
		if err := json.Unmarshal(body, &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list quizzes for course %d: %w", courseID, err)
	}
	return out, nil
}

// ListQuizQuestions returns every question of one quiz.
func (c *Client) ListQuizQuestions(ctx context.Context, courseID, quizID int64) ([]QuizQuestion, error) {
	var out []QuizQuestion
	err := c.paginate(ctx, fmt.Sprintf("%s/courses/%d/quizzes/%d/questions", c.baseURL, courseID, quizID), nil, func(body []byte) error {
		var page []QuizQuestion
		if err := json.Unmarshal(body, &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list questions for quiz %d: %w", quizID, err)
	}
	return out, nil
}

// GetAssignment fetches one assignment fresh, bypassing any cached listing.
func (c *Client) GetAssignment(ctx context.Context, courseID, assignmentID int64) (*Assignment, error) {
	var assignment Assignment
	if err := c.get(ctx, fmt.Sprintf("%s/courses/%d/assignments/%d", c.baseURL, courseID, assignmentID), &assignment); err != nil {
		return nil, fmt.Errorf("get assignment %d: %w", assignmentID, err)
	}
	return &assignment, nil
}

// GetPage fetches one page fresh by its page id.
func (c *Client) GetPage(ctx context.Context, courseID, pageID int64) (*Page, error) {
	var page Page
	if err := c.get(ctx, fmt.Sprintf("%s/courses/%d/pages/%d", c.baseURL, courseID, pageID), &page); err != nil {
		return nil, fmt.Errorf("get page %d: %w", pageID, err)
	}
	return &page, nil
}

// GetQuiz fetches one quiz fresh.
func (c *Client) GetQuiz(ctx context.Context, courseID, quizID int64) (*Quiz, error) {
	var quiz Quiz
	if err := c.get(ctx, fmt.Sprintf("%s/courses/%d/quizzes/%d", c.baseURL, courseID, quizID), &quiz); err != nil {
		return nil, fmt.Errorf("get quiz %d: %w", quizID, err)
	}
	return &quiz, nil
}

// GetQuizQuestion fetches one quiz question fresh.
func (c *Client) GetQuizQuestion(ctx context.Context, courseID, quizID, questionID int64) (*QuizQuestion, error) {
	var question QuizQuestion
	if err := c.get(ctx, fmt.Sprintf("%s/courses/%d/quizzes/%d/questions/%d", c.baseURL, courseID, quizID, questionID), &question); err != nil {
		return nil, fmt.Errorf("get quiz question %d: %w", questionID, err)
	}
	return &question, nil
}

// EditAssignment writes a new description HTML back to the assignment.
func (c *Client) EditAssignment(ctx context.Context, courseID, assignmentID int64, description string) error {
	payload := map[string]any{"assignment": map[string]string{"description": description}}
	return c.put(ctx, fmt.Sprintf("%s/courses/%d/assignments/%d", c.baseURL, courseID, assignmentID), payload)
}

// EditPage writes a new body back to the page.
func (c *Client) EditPage(ctx context.Context, courseID, pageID int64, body string) error {
	payload := map[string]any{"wiki_page": map[string]string{"body": body}}
	return c.put(ctx, fmt.Sprintf("%s/courses/%d/pages/%d", c.baseURL, courseID, pageID), payload)
}

// EditQuiz writes a new description back to the quiz.
func (c *Client) EditQuiz(ctx context.Context, courseID, quizID int64, description string) error {
	payload := map[string]any{"quiz": map[string]string{"description": description}}
	return c.put(ctx, fmt.Sprintf("%s/courses/%d/quizzes/%d", c.baseURL, courseID, quizID), payload)
}

// EditQuizQuestion writes new question text back to the question.
func (c *Client) EditQuizQuestion(ctx context.Context, courseID, quizID, questionID int64, text string) error {
	payload := map[string]any{"question": map[string]string{"question_text": text}}
	return c.put(ctx, fmt.Sprintf("%s/courses/%d/quizzes/%d/questions/%d", c.baseURL, courseID, quizID, questionID), payload)
}

// DownloadFile fetches raw bytes from a file URL using the client's bearer
// token. The URL comes straight from an ImageItem record.
func (c *Client) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	if fileURL == "" {
		return nil, fmt.Errorf("download file: empty URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file %s: HTTP %d", fileURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileURL, err)
	}
	return data, nil
}

var nextLinkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// paginate walks a listing endpoint page by page, handing each raw page
// body to collect. Canvas signals continuation through the Link header.
func (c *Client) paginate(ctx context.Context, endpoint string, params url.Values, collect func([]byte) error) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("per_page", strconv.Itoa(c.pageSize))
	next := endpoint + "?" + params.Encode()

	for next != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, next, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return readErr
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("GET %s: HTTP %d", next, resp.StatusCode)
		}
		if err := collect(body); err != nil {
			return err
		}

		next = ""
		if match := nextLinkPattern.FindStringSubmatch(resp.Header.Get("Link")); match != nil {
			next = match[1]
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", endpoint, resp.StatusCode)
	}
	return json.Unmarshal(body, dest)
}

func (c *Client) put(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("PUT %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		c.logger.Sugar().Debugw("drain response body failed", "endpoint", endpoint, "error", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("PUT %s: HTTP %d", endpoint, resp.StatusCode)
	}
	return nil
}
