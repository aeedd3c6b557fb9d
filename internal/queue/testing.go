package queue

import "github.com/redis/rueidis"

// NewForTest wraps an existing client, usually a mock.
func NewForTest(c rueidis.Client) *Queue {
	return &Queue{client: c}
}
