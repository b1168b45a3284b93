package gorequest

import "context"

// Get, Post, Put, Delete, Patch, Head, Options build a throwaway Session,
// issue one request, and close the Session. They are the module-level
// one-shot convenience wrappers; they hold no state between calls.

func Get(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return oneShot(ctx, "GET", url, opts)
}

func Post(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return oneShot(ctx, "POST", url, opts)
}

func Put(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return oneShot(ctx, "PUT", url, opts)
}

func Delete(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return oneShot(ctx, "DELETE", url, opts)
}

func Patch(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return oneShot(ctx, "PATCH", url, opts)
}

func Head(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return oneShot(ctx, "HEAD", url, opts)
}

func Options(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return oneShot(ctx, "OPTIONS", url, opts)
}

func oneShot(ctx context.Context, method, url string, opts *RequestOptions) (*Response, error) {
	s := NewSession()
	defer s.Close()
	return s.Request(ctx, method, url, opts)
}
