package scheduler

import (
	"github.com/milkbites/milkbites-backend/internal/app/service"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// DiscountScheduler deactivates discount codes past their end date.
type DiscountScheduler struct {
	cron            *cron.Cron
	discountService service.DiscountService
}

func NewDiscountScheduler(discountService service.DiscountService) *DiscountScheduler {
	return &DiscountScheduler{
		cron:            cron.New(),
		discountService: discountService,
	}
}

// Start registers the nightly sweep. Expiry is also enforced at
// validation time, so the sweep only keeps the admin listing tidy.
func (s *DiscountScheduler) Start() error {
	// Every day at 00:05
	_, err := s.cron.AddFunc("5 0 * * *", func() {
		logger.Info("Starting scheduled discount expiry sweep", nil)

		count, err := s.discountService.DeactivateExpired()
		if err != nil {
			logger.Error("Failed to deactivate expired discounts from scheduler", err)
			return
		}

		logger.Info("Scheduled discount expiry sweep finished", map[string]interface{}{
			"deactivated": count,
		})
	})

	if err != nil {
		logger.Error("Failed to add cron job for discount expiry", err)
		return err
	}

	s.cron.Start()
	logger.Info("Discount scheduler started successfully (daily at 00:05)", nil)

	return nil
}

func (s *DiscountScheduler) Stop() {
	logger.Info("Stopping discount scheduler...", nil)
	s.cron.Stop()
	logger.Info("Discount scheduler stopped", nil)
}
