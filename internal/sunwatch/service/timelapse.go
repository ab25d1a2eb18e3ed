package service

import (
	"errors"
	"fmt"

	"github.com/mkarlsen/sunwatch/internal/sunwatch/types"
)

var ErrBadTimelapseParams = errors.New("invalid timelapse parameters")

// TimelapseOptions are the video parameters a plan is computed for.
type TimelapseOptions struct {
	VideoDurationSeconds int
	VideoFPS             int
	PhotoSizeMB          float64
}

// DefaultTimelapseOptions matches the capture defaults: a 20 second clip at
// 60 fps from ~10 MB stills.
func DefaultTimelapseOptions() TimelapseOptions {
	return TimelapseOptions{
		VideoDurationSeconds: 20,
		VideoFPS:             60,
		PhotoSizeMB:          10.0,
	}
}

// TimelapsePlan describes how to shoot a period so the frames compress into
// the requested clip.
type TimelapsePlan struct {
	Kind                 types.PeriodKind `json:"period_type"`
	Start                string           `json:"start_time"`
	End                  string           `json:"end_time"`
	TotalDurationSeconds float64          `json:"total_duration_seconds"`
	VideoDurationSeconds int              `json:"video_duration_seconds"`
	VideoFPS             int              `json:"video_fps"`
	TotalFrames          int              `json:"total_frames"`
	IntervalSeconds      float64          `json:"interval_seconds"`
	PhotosNeeded         int              `json:"photos_needed"`
	EstimatedFileSizeMB  float64          `json:"estimated_file_size_mb"`
}

// PlanTimelapse computes shooting parameters for a period.  Pure.
func PlanTimelapse(p types.Period, opts TimelapseOptions) (TimelapsePlan, error) {
	if opts.VideoDurationSeconds <= 0 {
		return TimelapsePlan{}, fmt.Errorf("%w: video duration must be positive", ErrBadTimelapseParams)
	}
	if opts.VideoFPS <= 0 || opts.VideoFPS > 120 {
		return TimelapsePlan{}, fmt.Errorf("%w: fps must be in (0, 120]", ErrBadTimelapseParams)
	}
	if opts.PhotoSizeMB <= 0 {
		return TimelapsePlan{}, fmt.Errorf("%w: photo size must be positive", ErrBadTimelapseParams)
	}
	if !p.End.After(p.Start) {
		return TimelapsePlan{}, fmt.Errorf("%w: period end before start", ErrBadTimelapseParams)
	}

	total := p.End.Sub(p.Start).Seconds()
	frames := opts.VideoDurationSeconds * opts.VideoFPS
	interval := total / float64(frames)
	photos := int(total / interval)

	return TimelapsePlan{
		Kind:                 p.Kind,
		Start:                p.Start.Format("2006-01-02T15:04:05"),
		End:                  p.End.Format("2006-01-02T15:04:05"),
		TotalDurationSeconds: total,
		VideoDurationSeconds: opts.VideoDurationSeconds,
		VideoFPS:             opts.VideoFPS,
		TotalFrames:          frames,
		IntervalSeconds:      interval,
		PhotosNeeded:         photos,
		EstimatedFileSizeMB:  float64(photos) * opts.PhotoSizeMB,
	}, nil
}
