package graph

import "unicode/utf16"

// branchColors is the palette branch names hash into.
var branchColors = []string{
	"#e6194b",
	"#3cb44b",
	"#ffe119",
	"#4363d8",
	"#f58231",
	"#46f0f0",
	"#f032e6",
	"#bcf60c",
	"#fabebe",
	"#008080",
	"#e6beff",
	"#9a6324",
	"#800000",
	"#aaffc3",
	"#808000",
	"#ffd8b1",
	"#000075",
}

// BranchColor returns the display color of a branch. The same name always
// maps to the same color.
func BranchColor(name string) string {
	return branchColors[textHash(name)%uint32(len(branchColors))]
}

// textHash is the classic hash*31 + c string hash over UTF-16 code units,
// kept in 32 bits and read as unsigned.
func textHash(name string) uint32 {
	var hash uint32
	for _, r := range name {
		if r >= 0x10000 {
			r1, r2 := utf16.EncodeRune(r)
			hash = hash*31 + uint32(r1)
			hash = hash*31 + uint32(r2)
			continue
		}
		hash = hash*31 + uint32(r)
	}
	return hash
}
