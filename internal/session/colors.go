package session

import "hash/fnv"

// palette holds the cursor colors handed out to sessions. A session's
// color is derived from its token, so reconnects with the same token keep
// the same color.
var palette = []string{
	"#e6194b",
	"#3cb44b",
	"#ffe119",
	"#4363d8",
	"#f58231",
	"#911eb4",
	"#46f0f0",
	"#f032e6",
	"#bcf60c",
	"#fabebe",
	"#008080",
	"#e6beff",
}

// ColorFor picks a deterministic cursor color for a session token.
func ColorFor(sessionToken string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionToken))
	return palette[h.Sum32()%uint32(len(palette))]
}
