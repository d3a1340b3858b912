package models

import (
	"sort"
	"time"
)

// IsOverdue 计划日期早于当前时间即为逾期，未设置计划日期不算逾期。
// 不做时区归一，按绝对时间比较。
func IsOverdue(nextFollowUpDate *time.Time, now time.Time) bool {
	if nextFollowUpDate == nil {
		return false
	}
	return nextFollowUpDate.Before(now)
}

// IsOverdueAt 只有跟进中的记录才可能逾期
func (r *FollowUpRecord) IsOverdueAt(now time.Time) bool {
	return r.CaseStatus == CaseStatusOpen && IsOverdue(r.NextFollowUpDate, now)
}

// SortForDisplay 逾期优先，其次按优先级从高到低，最后按计划日期升序
func SortForDisplay(views []FollowUpView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.Overdue != b.Overdue {
			return a.Overdue
		}
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}
		switch {
		case a.NextFollowUpDate == nil:
			return false
		case b.NextFollowUpDate == nil:
			return true
		default:
			return a.NextFollowUpDate.Before(*b.NextFollowUpDate)
		}
	})
}
