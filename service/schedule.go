package service

import (
	"context"
	"time"

	"github.com/BerniceZTT/crm_followup/utils"
)

// nextRunAt 计算下一次执行时间，今天已过则顺延一天
func nextRunAt(now time.Time, hour, min, sec int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, sec, 0, now.Location())
	if !now.Before(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// 每天指定时间执行任务，ctx取消后退出
func ScheduleDailyTaskAt(ctx context.Context, hour, min, sec int, task func(ctx context.Context)) {
	go func() {
		for {
			wait := time.Until(nextRunAt(time.Now(), hour, min, sec))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				task(ctx)
			}
		}
	}()
}

// ProcessOverdueFollowUps 每日逾期检查：统计逾期的跟进记录并发布汇总事件
func ProcessOverdueFollowUps(svc *FollowUpService) func(ctx context.Context) {
	return func(ctx context.Context) {
		start := time.Now()
		utils.Logger.Info().Time("time", start).Msg("开始执行每日逾期跟进检查任务")

		runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		digest, err := svc.OverdueDigest(runCtx)
		if err != nil {
			utils.LogError(err, nil, "每日逾期跟进检查失败")
			return
		}

		utils.Logger.Info().
			Int("open", digest.OpenCount).
			Int("overdue", digest.OverdueCount).
			Dur("elapsed", time.Since(start)).
			Msg("每日逾期跟进检查任务完成")
	}
}
