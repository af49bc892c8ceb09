package encoder

import (
	"fmt"
	"os"

	"video-compressor/planner"
)

// passArgs constructs the ffmpeg arguments for one pass. Pass 1 only
// collects rate statistics into passlog and writes nothing playable.
func passArgs(plan planner.Plan, pass int, passlog string) []string {
	args := []string{
		"-hide_banner",
		"-nostats",
		"-progress", "pipe:1", // key=value progress on stdout
		"-y",
		"-i", plan.InputPath,
		"-c:v", plan.Format.VideoCodec(),
		"-b:v", fmt.Sprintf("%dk", plan.VideoKbps),
		"-pix_fmt", "yuv420p",
		"-pass", fmt.Sprintf("%d", pass),
		"-passlogfile", passlog,
	}

	if pass == 1 {
		return append(args, "-an", "-f", "null", os.DevNull)
	}

	if plan.HasAudio {
		args = append(args,
			"-c:a", plan.Format.AudioCodec(),
			"-b:a", fmt.Sprintf("%dk", plan.AudioKbps),
		)
	} else {
		args = append(args, "-an")
	}
	args = append(args, plan.Format.MuxerArgs()...)
	return append(args, plan.OutputPath)
}
