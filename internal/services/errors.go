package services

import "errors"

// Dataset service errors
var (
	ErrNoDataset       = errors.New("no dataset loaded")
	ErrEmptyUpload     = errors.New("uploaded file is empty")
	ErrUploadTooLarge  = errors.New("uploaded file exceeds the size limit")
	ErrUnsupportedFile = errors.New("unsupported file type")
)
