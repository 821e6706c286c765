package pass

import "strings"

// BlacklistMatch reports whether a draft person matches an active blacklist
// entry. A match requires the same normalized full name plus a shared strong
// identifier: IIN or document number. A draft carrying neither identifier
// never matches, so a name collision alone does not block a request.
func BlacklistMatch(e BlacklistEntry, p PersonDraft) bool {
	if !e.Active {
		return false
	}
	if normalizeName(e.FullName) != normalizeName(p.FullName) {
		return false
	}
	if p.IIN == "" && p.DocNumber == "" {
		return false
	}
	if p.IIN != "" && e.IIN != "" && strings.EqualFold(p.IIN, e.IIN) {
		return true
	}
	if p.DocNumber != "" && e.DocNumber != "" && strings.EqualFold(p.DocNumber, e.DocNumber) {
		return true
	}
	return false
}

// ScreenBlacklist returns the first active entry matching any draft person,
// along with the offending draft, or nil when the whole group is clear.
func ScreenBlacklist(entries []BlacklistEntry, persons []PersonDraft) (*BlacklistEntry, *PersonDraft) {
	for i := range persons {
		for j := range entries {
			if BlacklistMatch(entries[j], persons[i]) {
				return &entries[j], &persons[i]
			}
		}
	}
	return nil, nil
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
