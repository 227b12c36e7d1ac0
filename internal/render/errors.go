package render

import (
	"errors"
	"fmt"
)

// Stage names a step of the render pipeline.
type Stage string

const (
	StageParse   Stage = "parse"
	StageAssets  Stage = "assets"
	StageSurface Stage = "surface"
	StageEncode  Stage = "encode"
	StageWrite   Stage = "write"
)

// ErrAssets is wrapped by failures to load board, stone or font assets.
var ErrAssets = errors.New("asset load failed")

// RenderError reports a failed render and the stage that failed.
type RenderError struct {
	Stage Stage
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed at %s stage: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &RenderError{Stage: stage, Err: err}
}

// StageOf returns the failing stage of err if it carries one.
func StageOf(err error) (Stage, bool) {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Stage, true
	}
	return "", false
}
