// Package bilingual holds values that exist in both Thai and English.
//
// Every consumer reads through Get, so the missing-language fallback is
// applied the same way everywhere: the requested locale first, then the
// other locale, then the zero value.
package bilingual

import (
	"bytes"
	"encoding/json"
)

// Bilingual is a pair of optional values, one per supported locale.
type Bilingual[T any] struct {
	Th *T `json:"th,omitempty" yaml:"th,omitempty"`
	En *T `json:"en,omitempty" yaml:"en,omitempty"`
}

// Text is the common case of a translated string.
type Text = Bilingual[string]

// New returns a value populated in both locales.
func New[T any](th, en T) Bilingual[T] {
	return Bilingual[T]{Th: &th, En: &en}
}

// Only returns a value populated in a single locale.
func Only[T any](loc Locale, v T) Bilingual[T] {
	var b Bilingual[T]
	b.Set(loc, v)
	return b
}

// Set stores v for the given locale. Unsupported locales are ignored.
func (b *Bilingual[T]) Set(loc Locale, v T) {
	switch loc {
	case Thai:
		b.Th = &v
	case English:
		b.En = &v
	}
}

// Lookup returns the value stored for exactly loc, without fallback.
func (b Bilingual[T]) Lookup(loc Locale) (T, bool) {
	var p *T
	switch loc {
	case Thai:
		p = b.Th
	case English:
		p = b.En
	}
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Get returns the value for loc, falling back to the other locale and then
// to the zero value of T.
func (b Bilingual[T]) Get(loc Locale) T {
	if v, ok := b.Lookup(loc); ok {
		return v
	}
	if v, ok := b.Lookup(loc.Other()); ok {
		return v
	}
	var zero T
	return zero
}

// Has reports whether a value exists for loc.
func (b Bilingual[T]) Has(loc Locale) bool {
	_, ok := b.Lookup(loc)
	return ok
}

// IsEmpty reports whether neither locale is populated.
func (b Bilingual[T]) IsEmpty() bool {
	return b.Th == nil && b.En == nil
}

// UnmarshalJSON accepts either the {"th":..,"en":..} object or a bare value,
// which is stored in both locales. Bare strings show up in legacy records
// written before titles were translated.
func (b *Bilingual[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*b = Bilingual[T]{}
		return nil
	}
	if trimmed[0] == '{' {
		type plain Bilingual[T]
		var p plain
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return err
		}
		*b = Bilingual[T](p)
		return nil
	}
	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*b = New(v, v)
	return nil
}
