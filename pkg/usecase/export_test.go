package usecase

import (
	"time"

	"github.com/venquis/contractchat/pkg/domain/model"
)

// PickReplyButtons is exported for testing keyword matching
func PickReplyButtons(content string) []model.ActionButton {
	return pickReply(content).buttons
}

// SetRelayClock is exported for testing
func SetRelayClock(uc *RelayUseCase, now func() time.Time) {
	uc.now = now
}

// SetUploadClock is exported for testing
func SetUploadClock(uc *UploadUseCase, now func() time.Time) {
	uc.now = now
}
