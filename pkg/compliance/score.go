package compliance

import "indialaw-go/internal/model"

// 每个风险等级的扣分
const (
	highPenalty   = 15
	mediumPenalty = 8
	lowPenalty    = 3
)

// Score 从 100 分起按风险等级扣分，最低为 0。
func Score(risks []model.Risk) int {
	s := Summarize(risks)
	return clamp(100 - highPenalty*s.High - mediumPenalty*s.Medium - lowPenalty*s.Low)
}

// Summarize 按等级统计风险数量。
func Summarize(risks []model.Risk) model.RiskSummary {
	var s model.RiskSummary
	for _, r := range risks {
		switch r.Level {
		case model.LevelHigh:
			s.High++
		case model.LevelMedium:
			s.Medium++
		case model.LevelLow:
			s.Low++
		}
	}
	return s
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// roundScore 先截断到 [0,100] 再取整，越界浮点数直接转 int 的结果不确定。
func roundScore(f float64) int {
	if f <= 0 {
		return 0
	}
	if f >= 100 {
		return 100
	}
	return int(f + 0.5)
}
