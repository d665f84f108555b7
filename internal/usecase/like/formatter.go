package like

import (
	"html"
	"math/rand/v2"
	"strings"
	"sync"

	domainLike "simplelikes/internal/domain/like"
)

// Translation keys consumed by the formatter.
const (
	KeyYou          = "you"
	KeyLikeSingular = "like_singular"
	KeyLikePlural   = "like_plural"
	KeyComma        = "comma"
	KeyAnd          = "and"
	KeyLikeOthers   = "like_others"
	KeyLikeNormal   = "like_normal"
)

// Translator supplies localized strings and positional templates.
type Translator interface {
	Get(key string) string
	Sprintf(key string, args ...any) string
}

// ProfileLinkRenderer renders markup linking a username to a profile.
type ProfileLinkRenderer interface {
	ProfileLink(escapedUsername string, userID int64) string
}

// NumberFormatter renders an integer for the current locale.
type NumberFormatter interface {
	FormatNumber(n int) string
}

// Formatter renders the "X, Y and N others like this" sentence of a post.
// It is safe for concurrent use.
type Formatter struct {
	tr      Translator
	links   ProfileLinkRenderer
	numbers NumberFormatter

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewFormatter builds a Formatter. A nil rnd is replaced by a randomly
// seeded generator.
func NewFormatter(tr Translator, links ProfileLinkRenderer, numbers NumberFormatter, rnd *rand.Rand) *Formatter {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Formatter{
		tr:      tr,
		links:   links,
		numbers: numbers,
		rnd:     rnd,
	}
}

// Format renders the like summary of post. It returns "" when the post has
// no likes or cfg disables names.
func (f *Formatter) Format(byPost domainLike.ByPost, post domainLike.Post, viewerID int64, cfg domainLike.DisplayConfig) string {
	budget := cfg.MaxNamesShown
	if budget <= 0 {
		return ""
	}

	remaining := byPost.Clone(post.ID)
	you := f.tr.Get(KeyYou)
	names := make([]string, 0, min(budget, len(remaining)))

	if _, ok := remaining[viewerID]; ok {
		names = append(names, you)
		delete(remaining, viewerID)
		budget--
	}

	// sorted so that a seeded generator picks the same names every run
	candidates := remaining.SortedUserIDs()
	for budget > 0 && len(candidates) > 0 {
		i := f.intN(len(candidates))
		userID := candidates[i]
		candidates[i] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]

		rec := remaining[userID]
		names = append(names, f.links.ProfileLink(html.EscapeString(rec.Username), userID))
		delete(remaining, userID)
		budget--
	}

	if len(names) == 0 {
		return ""
	}

	phrase := f.tr.Get(KeyLikeSingular)
	if len(names) == 1 && names[0] != you {
		phrase = f.tr.Get(KeyLikePlural)
	}

	comma := f.tr.Get(KeyComma)
	if len(remaining) > 0 {
		list := strings.Join(names, comma)
		count := f.numbers.FormatNumber(len(remaining))
		return f.tr.Sprintf(KeyLikeOthers, list, count, phrase, post.ID)
	}

	list := names[0]
	if len(names) > 1 {
		last := names[len(names)-1]
		list = strings.Join(names[:len(names)-1], comma) + " " + f.tr.Get(KeyAnd) + " " + last
	}
	return f.tr.Sprintf(KeyLikeNormal, list, phrase)
}

func (f *Formatter) intN(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rnd.IntN(n)
}
