package service

import (
	"context"
	"math/big"
	"time"

	"github.com/mystikonetwork/relayer/log"
)

// watchBalance periodically compares the account's native balance against its
// configured alarm threshold and records the result, so operators can alert
// on accounts that can no longer pay for gas.
func (s *Service) watchBalance(ctx context.Context, acc *account) {
	if acc.config.BalanceAlarmThreshold == 0 {
		return
	}
	threshold := thresholdWei(acc.config.BalanceAlarmThreshold)
	interval := time.Duration(acc.config.BalanceCheckInterval) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var insufficient bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		balance, err := acc.txManager.Balance(ctx)
		if err != nil {
			log.Warnw("failed to check account balance",
				"chainId", acc.info.ChainID,
				"address", acc.info.ChainAddress,
				"error", err.Error())
			continue
		}
		low := balance.Cmp(threshold) < 0
		if low {
			log.Warnw("account balance below alarm threshold",
				"chainId", acc.info.ChainID,
				"address", acc.info.ChainAddress,
				"balance", balance.String(),
				"threshold", threshold.String())
		}
		if low == insufficient {
			continue
		}
		insufficient = low
		if err := s.storage.SetInsufficientBalance(ctx,
			acc.info.ChainID, acc.info.ChainAddress, low); err != nil {
			log.Errorw(err, "failed to record account balance state")
		}
	}
}

// thresholdWei converts a native-unit threshold into wei.
func thresholdWei(threshold float64) *big.Int {
	wei, _ := new(big.Float).Mul(
		big.NewFloat(threshold),
		big.NewFloat(1e18),
	).Int(nil)
	return wei
}
