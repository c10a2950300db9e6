package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

const (
	SubmitThreadLocked = "thread-locked"
	SubmitPostRemoved  = "post-removed"
	SubmitRateLimited  = "rate-limited"
	SubmitAPIError     = "api-error"
)

// SubmitError is a failed reply submission, classified so callers can tell
// terminal failures (the post will never accept this reply) from transient
// ones worth retrying on a later cycle.
type SubmitError struct {
	Reason     string
	StatusCode int
	Detail     string
}

func (e *SubmitError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("reply rejected (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("reply rejected (%s)", e.Reason)
}

// Terminal reports whether retrying the same post can ever succeed.
func (e *SubmitError) Terminal() bool {
	return e.Reason == SubmitThreadLocked || e.Reason == SubmitPostRemoved
}

// reddit reports most submit failures inside a 200 response, as
// [code, message, field] triples
type commentResponse struct {
	JSON struct {
		Errors [][]string `json:"errors"`
		Data   struct {
			Things []struct {
				Kind string `json:"kind"`
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

func submitErrorFromCode(code, message string) *SubmitError {
	reason := SubmitAPIError
	switch code {
	case "THREAD_LOCKED", "TOO_OLD":
		reason = SubmitThreadLocked
	case "DELETED_LINK", "DELETED_THING":
		reason = SubmitPostRemoved
	case "RATELIMIT":
		reason = SubmitRateLimited
	}
	return &SubmitError{Reason: reason, Detail: fmt.Sprintf("%s: %s", code, message)}
}

// SubmitReply posts a comment on the given post and returns the new comment
// id. Failures come back as a *SubmitError.
func (c *Client) SubmitReply(ctx context.Context, postFullname, text string) (string, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", postFullname)
	form.Set("text", text)

	var out commentResponse
	if err := c.apiPostForm(ctx, "/api/comment", form, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			reason := SubmitAPIError
			if apiErr.IsThrottled() {
				reason = SubmitRateLimited
			}
			return "", &SubmitError{Reason: reason, StatusCode: apiErr.StatusCode, Detail: apiErr.Body}
		}
		return "", &SubmitError{Reason: SubmitAPIError, Detail: err.Error()}
	}

	if errs := out.JSON.Errors; len(errs) > 0 {
		code, message := "", ""
		if len(errs[0]) > 0 {
			code = errs[0][0]
		}
		if len(errs[0]) > 1 {
			message = errs[0][1]
		}
		submitFailureCount.WithLabelValues(code).Inc()
		return "", submitErrorFromCode(code, message)
	}

	commentID := ""
	if things := out.JSON.Data.Things; len(things) > 0 {
		commentID = things[0].Data.ID
	}
	submitOkCount.Inc()
	return commentID, nil
}
