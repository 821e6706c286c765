package pass

// Finalize recomputes a request status from its person statuses after an
// individual person decision at the given stage. It returns the new status
// and whether it differs from current. The function is pure and idempotent:
// re-evaluating with unchanged inputs yields (current, false).
//
// USB stage: once every person is decided at USB, the request becomes
// APPROVED_USB when at least one person was approved, DECLINED_USB otherwise.
//
// AS stage, direct flow (request still PENDING_AS, never reviewed by USB):
// once every person is decided at AS, the request becomes APPROVED_AS when at
// least one person was approved, DECLINED_AS otherwise.
//
// AS stage, via-USB flow (request APPROVED_USB): AS only ever decides the
// persons USB approved; the USB-declined remainder is excluded from the
// denominator. Once all USB-approved persons are decided at AS (and at least
// one decision exists) the same at-least-one-approved rule applies.
//
// Any other combination leaves the request untouched: the stage is still in
// progress.
func Finalize(stage Stage, current Status, persons []Status) (Status, bool) {
	total := len(persons)
	if total == 0 {
		return current, false
	}

	switch stage {
	case StageUSB:
		usbDone, usbApproved := 0, 0
		for _, s := range persons {
			switch s {
			case StatusApprovedUSB:
				usbDone++
				usbApproved++
			case StatusDeclinedUSB:
				usbDone++
			}
		}
		if usbDone != total {
			return current, false
		}
		next := StatusApprovedUSB
		if usbApproved == 0 {
			next = StatusDeclinedUSB
		}
		return next, next != current

	case StageAS:
		asDone, asApproved := 0, 0
		for _, s := range persons {
			switch s {
			case StatusApprovedAS:
				asDone++
				asApproved++
			case StatusDeclinedAS:
				asDone++
			}
		}

		switch current {
		case StatusPendingAS:
			if asDone != total {
				return current, false
			}
		case StatusApprovedUSB:
			// Everyone USB ever approved, whether or not AS has since
			// processed them.
			usbApprovedTotal := asDone
			for _, s := range persons {
				if s == StatusApprovedUSB {
					usbApprovedTotal++
				}
			}
			if asDone == 0 || asDone != usbApprovedTotal {
				return current, false
			}
		default:
			return current, false
		}

		next := StatusApprovedAS
		if asApproved == 0 {
			next = StatusDeclinedAS
		}
		return next, next != current
	}

	return current, false
}
