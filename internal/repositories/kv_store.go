package repositories

import "context"

// KVStore is the preferences-style key-value store every collection is kept in.
// Get returns errs.ErrNotFound for a key that was never set; Delete of a
// missing key is not an error.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// DefaultKeyPrefix namespaces every key the app writes.
const DefaultKeyPrefix = "com.mindmail."

// Keys names the four records the app persists.
type Keys struct {
	User                string
	JournalEntries      string
	Letters             string
	OnboardingCompleted string
}

// NewKeys builds the key set under prefix. An empty prefix uses DefaultKeyPrefix.
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return Keys{
		User:                prefix + "user",
		JournalEntries:      prefix + "journal_entries",
		Letters:             prefix + "letters",
		OnboardingCompleted: prefix + "onboarding_completed",
	}
}

// All lists every key, for wiping the store.
func (k Keys) All() []string {
	return []string{k.User, k.JournalEntries, k.Letters, k.OnboardingCompleted}
}
