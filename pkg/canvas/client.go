package canvas

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

const perPage = 100 // max allowed by Canvas

// Client talks to one Canvas instance. All list endpoints are fully paginated
// before returning, so callers always see complete result sets. Rate limiting
// (HTTP 429) is absorbed by the transport: the retry policy re-issues 429s and
// 5xx responses, sleeping for the server-supplied Retry-After duration.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

func New(baseURL, token string) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.RetryMax = 8
	rc.RetryWaitMax = 2 * time.Minute
	rc.HTTPClient.Timeout = 30 * time.Second
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    rc,
	}
}

// SetProxy routes all requests through an HTTP proxy. Useful for debugging.
func (c *Client) SetProxy(proxy string) error {
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}
	c.http.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string) (string, http.Header, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}

	if resp.StatusCode >= 400 {
		return "", nil, newAPIError(resp.StatusCode, string(body))
	}
	return string(body), resp.Header, nil
}

func newAPIError(status int, body string) *APIError {
	msg := gjson.Get(body, "errors.0.message").String()
	if msg == "" {
		// Canvas outages answer JSON endpoints with HTML pages.
		if title, ok := htmlTitle(body); ok {
			msg = strings.TrimSpace(title)
		}
	}
	return &APIError{StatusCode: status, Message: msg}
}

// nextPageURL parses the RFC 5988 Link header Canvas uses for pagination.
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		if strings.Contains(part, `rel="next"`) {
			seg := strings.SplitN(part, ";", 2)[0]
			return strings.Trim(strings.TrimSpace(seg), "<> ")
		}
	}
	return ""
}

// paginate walks every page of a list endpoint and returns the concatenated
// top-level results.
func (c *Client) paginate(ctx context.Context, endpoint string, params url.Values) ([]gjson.Result, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("per_page", fmt.Sprint(perPage))
	next := c.baseURL + endpoint + "?" + params.Encode()

	var all []gjson.Result
	for next != "" {
		body, header, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}
		parsed := gjson.Parse(body)
		if parsed.IsArray() {
			all = append(all, parsed.Array()...)
		} else {
			all = append(all, parsed)
		}
		next = nextPageURL(header.Get("Link"))
	}
	return all, nil
}

// UserSelf returns the authenticated user. Used as a token/connection check.
func (c *Client) UserSelf(ctx context.Context) (User, error) {
	body, _, err := c.get(ctx, c.baseURL+"/api/v1/users/self")
	if err != nil {
		return User{}, err
	}
	r := gjson.Parse(body)
	return User{ID: idField(r, "id"), Name: r.Get("name").String()}, nil
}

// ListCourses returns the user's active courses, optionally filtered by
// enrollment type (e.g. "teacher").
func (c *Client) ListCourses(ctx context.Context, enrollmentType string) ([]Course, error) {
	params := url.Values{
		"include[]":        {"term", "total_students"},
		"enrollment_state": {"active"},
	}
	if enrollmentType != "" {
		params.Set("enrollment_type", enrollmentType)
	}
	results, err := c.paginate(ctx, "/api/v1/courses", params)
	if err != nil {
		return nil, err
	}
	courses := make([]Course, 0, len(results))
	for _, r := range results {
		courses = append(courses, courseFrom(r))
	}
	return courses, nil
}

func (c *Client) GetCourse(ctx context.Context, courseID CourseID) (Course, error) {
	u := fmt.Sprintf("%s/api/v1/courses/%s?include[]=term&include[]=total_students", c.baseURL, courseID)
	body, _, err := c.get(ctx, u)
	if err != nil {
		return Course{}, err
	}
	return courseFrom(gjson.Parse(body)), nil
}

// ListEnrollments returns active student enrollments for a course section.
func (c *Client) ListEnrollments(ctx context.Context, courseID CourseID) ([]Enrollment, error) {
	params := url.Values{
		"type[]":  {"StudentEnrollment"},
		"state[]": {"active"},
	}
	results, err := c.paginate(ctx, fmt.Sprintf("/api/v1/courses/%s/enrollments", courseID), params)
	if err != nil {
		return nil, err
	}
	enrollments := make([]Enrollment, 0, len(results))
	for _, r := range results {
		enrollments = append(enrollments, enrollmentFrom(r))
	}
	return enrollments, nil
}

// ListAssignments returns a course's assignments, rubric included when present.
func (c *Client) ListAssignments(ctx context.Context, courseID CourseID) ([]Assignment, error) {
	params := url.Values{"include[]": {"rubric"}}
	results, err := c.paginate(ctx, fmt.Sprintf("/api/v1/courses/%s/assignments", courseID), params)
	if err != nil {
		return nil, err
	}
	assignments := make([]Assignment, 0, len(results))
	for _, r := range results {
		assignments = append(assignments, assignmentFrom(r))
	}
	return assignments, nil
}

// GetAssignment fetches one assignment's detail, including the section-local
// rubric with its native criterion ids.
func (c *Client) GetAssignment(ctx context.Context, courseID CourseID, assignmentID ID) (Assignment, error) {
	u := fmt.Sprintf("%s/api/v1/courses/%s/assignments/%s?include[]=rubric", c.baseURL, courseID, assignmentID)
	body, _, err := c.get(ctx, u)
	if err != nil {
		return Assignment{}, err
	}
	return assignmentFrom(gjson.Parse(body)), nil
}

// ListSubmissions returns all submissions for an assignment, rubric
// assessments included.
func (c *Client) ListSubmissions(ctx context.Context, courseID CourseID, assignmentID ID) ([]Submission, error) {
	params := url.Values{"include[]": {"rubric_assessment"}}
	endpoint := fmt.Sprintf("/api/v1/courses/%s/assignments/%s/submissions", courseID, assignmentID)
	results, err := c.paginate(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	subs := make([]Submission, 0, len(results))
	for _, r := range results {
		subs = append(subs, submissionFrom(r))
	}
	return subs, nil
}

func (c *Client) ListQuizQuestions(ctx context.Context, courseID CourseID, quizID ID) ([]QuizQuestion, error) {
	endpoint := fmt.Sprintf("/api/v1/courses/%s/quizzes/%s/questions", courseID, quizID)
	results, err := c.paginate(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	questions := make([]QuizQuestion, 0, len(results))
	for _, r := range results {
		questions = append(questions, QuizQuestion{
			ID:      idField(r, "id"),
			GroupID: idField(r, "quiz_group_id"),
		})
	}
	return questions, nil
}

func (c *Client) GetQuizGroup(ctx context.Context, courseID CourseID, quizID, groupID ID) (QuizGroup, error) {
	u := fmt.Sprintf("%s/api/v1/courses/%s/quizzes/%s/groups/%s", c.baseURL, courseID, quizID, groupID)
	body, _, err := c.get(ctx, u)
	if err != nil {
		return QuizGroup{}, err
	}
	return quizGroupFrom(gjson.Parse(body)), nil
}

// ListQuizSubmissions returns all quiz submissions for a quiz. Canvas wraps
// the page payload in a "quiz_submissions" envelope.
func (c *Client) ListQuizSubmissions(ctx context.Context, courseID CourseID, quizID ID) ([]QuizSubmission, error) {
	endpoint := fmt.Sprintf("/api/v1/courses/%s/quizzes/%s/submissions", courseID, quizID)
	pages, err := c.paginate(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var subs []QuizSubmission
	for _, page := range pages {
		for _, r := range page.Get("quiz_submissions").Array() {
			subs = append(subs, QuizSubmission{
				ID:     idField(r, "id"),
				UserID: idField(r, "user_id"),
			})
		}
	}
	return subs, nil
}

// ListQuizSubmissionQuestions returns the per-question detail of one quiz
// submission, keyed globally by submission id.
func (c *Client) ListQuizSubmissionQuestions(ctx context.Context, quizSubmissionID ID) ([]QuizSubmissionQuestion, error) {
	endpoint := fmt.Sprintf("/api/v1/quiz_submissions/%s/questions", quizSubmissionID)
	pages, err := c.paginate(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var questions []QuizSubmissionQuestion
	for _, page := range pages {
		for _, r := range page.Get("quiz_submission_questions").Array() {
			questions = append(questions, QuizSubmissionQuestion{
				GroupID: idField(r, "quiz_group_id"),
				Correct: r.Get("correct").Bool(),
			})
		}
	}
	return questions, nil
}
