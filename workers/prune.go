package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Worker_prune calls prune every interval until ctx is cancelled.
func Worker_prune(ctx context.Context, prune func() (int, error), every time.Duration, log *logrus.Entry) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := prune()
			if err != nil {
				log.WithError(err).Error("Error pruning request claims")
				continue
			}
			if removed > 0 {
				log.WithField("removed", removed).Debug("Pruned expired request claims")
			}
		}
	}
}
