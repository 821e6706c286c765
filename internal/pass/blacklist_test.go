package pass

import "testing"

func TestBlacklistMatch(t *testing.T) {
	entry := BlacklistEntry{
		ID:        "bl1",
		FullName:  "Ivanov Ivan Ivanovich",
		IIN:       "880101300123",
		DocNumber: "N1234567",
		Active:    true,
	}

	cases := []struct {
		name  string
		entry BlacklistEntry
		draft PersonDraft
		want  bool
	}{
		{
			name:  "name and IIN",
			entry: entry,
			draft: PersonDraft{FullName: "Ivanov Ivan Ivanovich", IIN: "880101300123"},
			want:  true,
		},
		{
			name:  "name and document number, case insensitive",
			entry: entry,
			draft: PersonDraft{FullName: "ivanov ivan ivanovich", DocNumber: "n1234567"},
			want:  true,
		},
		{
			name:  "whitespace in name is normalized",
			entry: entry,
			draft: PersonDraft{FullName: "  Ivanov   Ivan Ivanovich ", IIN: "880101300123"},
			want:  true,
		},
		{
			name:  "name alone without identifiers",
			entry: entry,
			draft: PersonDraft{FullName: "Ivanov Ivan Ivanovich"},
			want:  false,
		},
		{
			name:  "matching IIN but different name",
			entry: entry,
			draft: PersonDraft{FullName: "Petrov Petr", IIN: "880101300123"},
			want:  false,
		},
		{
			name:  "matching name, wrong identifiers",
			entry: entry,
			draft: PersonDraft{FullName: "Ivanov Ivan Ivanovich", IIN: "990202400456", DocNumber: "X0000000"},
			want:  false,
		},
		{
			name:  "inactive entry",
			entry: BlacklistEntry{FullName: "Ivanov Ivan Ivanovich", IIN: "880101300123", Active: false},
			draft: PersonDraft{FullName: "Ivanov Ivan Ivanovich", IIN: "880101300123"},
			want:  false,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := BlacklistMatch(tt.entry, tt.draft); got != tt.want {
				t.Fatalf("BlacklistMatch = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScreenBlacklist(t *testing.T) {
	entries := []BlacklistEntry{
		{ID: "bl1", FullName: "Ivanov Ivan", IIN: "880101300123", Active: true},
		{ID: "bl2", FullName: "Petrov Petr", DocNumber: "N7654321", Active: true},
	}
	persons := []PersonDraft{
		{FullName: "Sidorov Sidor", IIN: "770101300999"},
		{FullName: "Petrov Petr", DocNumber: "N7654321"},
	}

	entry, draft := ScreenBlacklist(entries, persons)
	if entry == nil || draft == nil {
		t.Fatal("expected a match")
	}
	if entry.ID != "bl2" {
		t.Fatalf("matched entry %s, want bl2", entry.ID)
	}
	if draft.FullName != "Petrov Petr" {
		t.Fatalf("matched draft %q", draft.FullName)
	}

	if entry, _ := ScreenBlacklist(entries, persons[:1]); entry != nil {
		t.Fatalf("unexpected match against %s", entry.ID)
	}
}
