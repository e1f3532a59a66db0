package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/klabast/wb-services/admission-board/internal/events"
)

// ErrTargetNotEmpty is returned by Transfer when the target already holds
// events and overwrite was not requested
var ErrTargetNotEmpty = errors.New("target medium already holds events")

// Transfer copies the whole collection, id high-water mark included, from
// src to dst. Rows src cannot read are dropped and counted in the report.
func Transfer(ctx context.Context, src, dst Medium, overwrite bool) (Snapshot, error) {
	snap, err := src.Load(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s: %w", src.Describe(), err)
	}
	if snap.Report.Missing {
		return Snapshot{}, fmt.Errorf("load %s: source does not exist", src.Describe())
	}
	if highest := events.NextID(snap.Events) - 1; highest > snap.LastID {
		snap.LastID = highest
	}

	if !overwrite {
		existing, err := dst.Load(ctx)
		if err != nil {
			return Snapshot{}, fmt.Errorf("load %s: %w", dst.Describe(), err)
		}
		if len(existing.Events) > 0 {
			return Snapshot{}, fmt.Errorf("%s: %w", dst.Describe(), ErrTargetNotEmpty)
		}
	}

	if err := dst.Save(ctx, snap); err != nil {
		return Snapshot{}, fmt.Errorf("save %s: %w", dst.Describe(), err)
	}
	return snap, nil
}
