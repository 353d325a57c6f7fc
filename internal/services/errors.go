package services

import "errors"

var (
	ErrIngestion            = errors.New("document ingestion failed")
	ErrUnsupportedDocument  = errors.New("unsupported document type")
	ErrScoringUnavailable   = errors.New("similarity scoring unavailable")
	ErrRetrievalIndex       = errors.New("retrieval index failure")
	ErrGenerativeRefinement = errors.New("generative refinement failed")
)
