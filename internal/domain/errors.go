package domain

import "errors"

// Domain errors.
var (
	// ErrNotAVideo is returned when a resolved post carries no video.
	ErrNotAVideo = errors.New("post does not contain a video")

	// ErrMediaNotFound is returned when a stored video cannot be found.
	ErrMediaNotFound = errors.New("media file not found")

	// ErrInvalidPostID is returned when an id is unusable as a filename stem.
	ErrInvalidPostID = errors.New("invalid post id")

	// ErrMalformedResponse is returned when the post JSON cannot be decoded.
	ErrMalformedResponse = errors.New("malformed post response")

	// ErrUnexpectedStatus is returned for non-2xx upstream responses.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrMissingField is returned when the post JSON lacks an expected key.
	ErrMissingField = errors.New("missing field in post response")

	// ErrEmptyURL is returned when no post URL was submitted.
	ErrEmptyURL = errors.New("post URL is required")

	// ErrHistoryNotFound is returned when a post has no history entry.
	ErrHistoryNotFound = errors.New("history entry not found")
)

// ErrorKind classifies a PostError.
type ErrorKind string

const (
	// KindNotAVideo is a domain outcome: the post exists but has no video.
	KindNotAVideo ErrorKind = "not_a_video"
	// KindResolution covers network and parse failures against the post JSON.
	KindResolution ErrorKind = "resolution"
	// KindDownload covers network and disk failures while fetching media.
	KindDownload ErrorKind = "download"
	// KindNotFound is a domain outcome: the requested stored file is absent.
	KindNotFound ErrorKind = "not_found"
	// KindUnknown is returned by KindOf for errors that are not PostErrors.
	KindUnknown ErrorKind = "unknown"
)

// IsFault reports whether the kind is a system failure rather than an
// expected domain outcome.
func (k ErrorKind) IsFault() bool {
	return k != KindNotAVideo && k != KindNotFound
}

// PostError wraps an error with its kind and post context.
type PostError struct {
	Kind   ErrorKind
	PostID PostID
	Op     string
	Err    error
}

func (e *PostError) Error() string {
	if e.PostID != "" {
		return e.Op + " [" + e.PostID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *PostError) Unwrap() error {
	return e.Err
}

// NewPostError creates a new PostError.
func NewPostError(kind ErrorKind, postID PostID, op string, err error) *PostError {
	return &PostError{
		Kind:   kind,
		PostID: postID,
		Op:     op,
		Err:    err,
	}
}

// KindOf returns the kind of the first PostError in err's chain.
func KindOf(err error) ErrorKind {
	var pe *PostError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, ErrNotAVideo):
		return KindNotAVideo
	case errors.Is(err, ErrMediaNotFound):
		return KindNotFound
	}
	return KindUnknown
}

// User-facing messages for domain outcomes.
const (
	MessageNotAVideo = "This Reddit post does not contain a video."
	MessageNotFound  = "Video not found."
)

// UserMessage renders err as the text shown to the browser.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindNotAVideo:
		return MessageNotAVideo
	case KindNotFound:
		return MessageNotFound
	}
	return err.Error()
}
