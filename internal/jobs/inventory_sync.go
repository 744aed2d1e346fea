package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/logger"
)

const syncTimeout = 10 * time.Minute

// SyncInventory mirrors the remote item list into the local mirror table
func (jr *JobRunner) SyncInventory() {
	jr.runWithRecovery("SyncInventory", func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		log := logger.WithService("inventory-sync")
		result, err := jr.RunSyncInventory(ctx)
		if err != nil {
			log.Error("Inventory sync finished with errors", "error", err)
		}
		if result != nil {
			log.Info("Inventory sync summary",
				"fetched", result.Fetched,
				"created", result.Created,
				"updated", result.Updated,
				"archived", result.Archived,
				"errors", len(result.Errors))
		}
	})
}

// RunSyncInventory upserts every fetched item and archives mirror rows whose
// item is gone remotely. A failed fetch aborts before any row is touched and
// alerts operators. Per-item failures, malformed remote entries included,
// are collected and reported as a partial failure.
func (jr *JobRunner) RunSyncInventory(ctx context.Context) (*domain.SyncResult, error) {
	log := logger.WithService("inventory-sync")
	started := jr.now()

	items, rejected, err := jr.services.Inventory.ListItemsReport(ctx)
	if err != nil {
		jr.alert(ctx, "Inventory sync aborted",
			fmt.Sprintf("The inventory sync started at %s could not fetch the remote item list.\n\nError: %v",
				started.Format(time.RFC3339), err))
		return nil, domain.E(domain.KindOf(err), "sync.fetch", "", err)
	}

	result := &domain.SyncResult{Fetched: len(items) + len(rejected), Errors: []string{}}
	present := make([]string, 0, result.Fetched)
	for _, r := range rejected {
		log.Warn("Malformed inventory object", "index", r.Index, "remote_id", r.ID, "error", r.Reason)
		if r.ID != "" {
			// still exists remotely, so its mirror row must not be archived
			present = append(present, r.ID)
			result.Errors = append(result.Errors, fmt.Sprintf("item %s: %s", r.ID, r.Reason))
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("entry #%d: %s", r.Index, r.Reason))
		}
	}
	for _, item := range items {
		present = append(present, item.ID)

		row := &domain.MirrorItem{
			RemoteID:     item.ID,
			Name:         item.Name,
			Pieces:       item.Pieces,
			Price:        item.Price,
			Note:         item.Note,
			LastSyncedOn: started,
		}
		created, err := jr.mirror.Upsert(ctx, row)
		if err != nil {
			log.Warn("Failed to mirror inventory item", "remote_id", item.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("item %s: %v", item.ID, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	// an empty fetch would archive everything
	if len(items) == 0 {
		log.Warn("Remote inventory returned no usable items, skipping archive step")
	} else {
		archived, err := jr.mirror.ArchiveMissing(ctx, present, started)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("archive: %v", err))
		}
		result.Archived = archived
	}

	if len(result.Errors) > 0 {
		return result, domain.E(domain.KindPartialFailure, "sync.inventory",
			fmt.Sprintf("%d Fehler beim Abgleich", len(result.Errors)),
			fmt.Errorf("%d of %d items failed: %s", len(result.Errors), result.Fetched, strings.Join(result.Errors, "; ")))
	}
	return result, nil
}

// alert is fire-and-forget; delivery failures are only logged
func (jr *JobRunner) alert(ctx context.Context, subject, body string) {
	if jr.services.Alert == nil {
		logger.Error(subject, "body", body)
		return
	}
	if err := jr.services.Alert.SendAlert(ctx, subject, body); err != nil {
		logger.Error("Failed to send operator alert", "subject", subject, "error", err)
	}
}
