package ai

import "context"

// Request carries the snippet handed to the model.
type Request struct {
	Language    string
	Description string
	Code        string
}

// Client returns the raw JSON text answered by the model.
type Client interface {
	Review(ctx context.Context, req Request) (string, error)
}
