package storage

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// LocaleCompare returns a CompareFunc backed by golang.org/x/text/collate
// for the given BCP 47 tag, for callers that want range predicates
// (GT/GE/LT/LE) ordered by locale-aware collation instead of raw byte
// comparison. A Condition uses it after WithCompare, or when it is passed
// without WithCompare to GetPrimaryKeys on a StateStorage whose SetLocale
// installed it; otherwise range predicates keep raw byte ordering.
func LocaleCompare(tag string) (CompareFunc, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return nil, err
	}
	c := collate.New(t)
	return func(a, b string) int {
		return c.CompareString(a, b)
	}, nil
}
