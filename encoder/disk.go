package encoder

import (
	"context"

	"github.com/shirou/gopsutil/v4/disk"
)

// FreeSpaceFunc reports the bytes available to the current user under dir
type FreeSpaceFunc func(ctx context.Context, dir string) (uint64, error)

func diskFree(ctx context.Context, dir string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}
