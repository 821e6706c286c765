package pass

// maxDirectToAS is the largest group a short-term, all-local request may have
// and still skip the first-stage review.
const maxDirectToAS = 3

// RouteTarget decides which approval authority first reviews a new request.
// Long-term requests, groups larger than three and any group containing a
// foreign visitor start at USB; everything else goes straight to AS.
func RouteTarget(d Duration, persons []PersonDraft) Stage {
	if d == DurationLongTerm {
		return StageUSB
	}
	if len(persons) > maxDirectToAS {
		return StageUSB
	}
	for _, p := range persons {
		if p.Nationality == NationalityForeign {
			return StageUSB
		}
	}
	return StageAS
}
