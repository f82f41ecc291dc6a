package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrPostNotFound       = errors.New("post_not_found")
	ErrTagNotFound        = errors.New("tag_not_found")
	ErrTagNameTaken       = errors.New("tag_name_taken")
	ErrAttachmentNotFound = errors.New("attachment_not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
)
