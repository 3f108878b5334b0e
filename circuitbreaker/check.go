package circuitbreaker

import "github.com/Resinat/warden/base"

// check runs one rule's grade-specific decision against its ClusterNode
// and returns true iff the call may pass: false when the rule is already
// open or trips as a result of this observation (design §4.5). It never
// itself closes the circuit; that is the shared sweeper's job.
func check(r *Rule, node base.StatNode, nowMs int64) (pass bool) {
	if r.Tripped() {
		return false
	}

	switch r.Grade {
	case RT:
		return checkRT(r, node, nowMs)
	case ExceptionRatio:
		return checkExceptionRatio(r, node, nowMs)
	default: // ExceptionCount
		return checkExceptionCount(r, node, nowMs)
	}
}

func checkRT(r *Rule, node base.StatNode, nowMs int64) bool {
	if node.AvgRT() < r.Count {
		r.slowCount.Store(0)
		return true
	}
	slow := r.slowCount.Add(1)
	if int(slow) >= r.RTSlowRequestAmount {
		r.trip(nowMs)
		return false
	}
	return true
}

func checkExceptionRatio(r *Rule, node base.StatNode, nowMs int64) bool {
	totalQps := node.TotalQPS()
	if totalQps < r.MinRequestAmount {
		return true
	}
	exception := node.ExceptionQPS()
	success := node.CompleteQPS()
	// Preserves the source's pass-through clause verbatim (design §9 open
	// question: successQps already includes exceptions in the source's
	// notion of "completed", so the ratio is ill-defined once exceptions
	// dominate; rather than guess a redefinition, fall back to passing).
	if success-exception <= 0 && exception < r.MinRequestAmount {
		return true
	}
	if exception/success >= r.Count {
		r.trip(nowMs)
		return false
	}
	return true
}

func checkExceptionCount(r *Rule, node base.StatNode, nowMs int64) bool {
	if float64(node.TotalException()) >= r.Count {
		r.trip(nowMs)
		return false
	}
	return true
}
