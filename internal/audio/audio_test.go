package audio

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/pkg/schema/services"
)

// --- Fakes ---

type fakeSynth struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (f *fakeSynth) Synthesize(_ context.Context, text, languageCode string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, languageCode)
	if f.fail[languageCode] {
		return nil, errors.New("voice unavailable")
	}
	return []byte(languageCode + ":" + text), nil
}

type mapKV struct {
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMapKV() *mapKV {
	return &mapKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mapKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, services.ErrCacheMiss
	}
	return v, nil
}

func (m *mapKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mapKV) DeletePrefix(_ context.Context, prefix string) error {
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

var verse47 = models.Verse{
	Verse:              47,
	Text:               "karmany evadhikaras te",
	Translation:        "ನಿನಗೆ ಕರ್ಮದಲ್ಲಿ ಮಾತ್ರ ಅಧಿಕಾರ",
	EnglishTranslation: "You have a right to perform your prescribed duty",
}

// --- Language ---

func TestParseLanguage(t *testing.T) {
	l, err := ParseLanguage(" KN ")
	require.NoError(t, err)
	assert.Equal(t, Kannada, l)

	_, err = ParseLanguage("fr")
	assert.ErrorIs(t, err, models.ErrUnsupportedLanguage)
}

func TestLanguageVerseText(t *testing.T) {
	assert.Equal(t, verse47.EnglishTranslation, English.VerseText(verse47))
	assert.Equal(t, verse47.Translation, Kannada.VerseText(verse47))
	assert.Equal(t, verse47.Text, Sanskrit.VerseText(verse47))
	assert.Equal(t, []string{"hi-IN", "kn-IN"}, Sanskrit.Voices())
}

// --- DiskStore ---

func TestDiskStore_SaveResolve(t *testing.T) {
	ctx := context.Background()
	store := NewDiskStore(t.TempDir())

	_, err := store.Resolve(ctx, 47, English)
	require.ErrorIs(t, err, models.ErrAudioNotFound)
	assert.False(t, store.Exists(47, English))

	require.NoError(t, store.Save(ctx, 47, English, []byte("mp3")))
	assert.True(t, store.Exists(47, English))
	assert.True(t, strings.HasSuffix(store.Path(47, English), "en/verse_47.mp3"))

	data, err := store.Resolve(ctx, 47, English)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), data)

	// no temp files left behind
	entries, err := os.ReadDir(store.Root() + "/en")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// --- Session caches ---

func TestMemorySessionCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemorySessionCache(time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put(ctx, "s1", "k", []byte("a"))
	data, ok := c.Get(ctx, "s1", "k")
	require.True(t, ok)
	assert.Equal(t, []byte("a"), data)

	_, ok = c.Get(ctx, "s2", "k")
	assert.False(t, ok, "sessions are isolated")

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "s1", "k")
	assert.False(t, ok, "expired")
	assert.Zero(t, c.Len())
}

func TestMemorySessionCache_Clear(t *testing.T) {
	ctx := context.Background()
	c := NewMemorySessionCache(time.Minute)
	c.Put(ctx, "s1", "k", []byte("a"))
	c.Put(ctx, "s2", "k", []byte("b"))

	require.NoError(t, c.Clear(ctx, "s1"))
	_, ok := c.Get(ctx, "s1", "k")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "s2", "k")
	assert.True(t, ok)
}

func TestKVSessionCache(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV()
	c := NewKVSessionCache(kv, time.Minute, nil)

	_, ok := c.Get(ctx, "s1", "k")
	assert.False(t, ok)

	c.Put(ctx, "s1", "k", []byte("a"))
	c.Put(ctx, "s2", "k", []byte("b"))
	assert.Equal(t, time.Minute, kv.ttls["gita:audio:s1:k"])

	data, ok := c.Get(ctx, "s1", "k")
	require.True(t, ok)
	assert.Equal(t, []byte("a"), data)

	require.NoError(t, c.Clear(ctx, "s1"))
	_, ok = c.Get(ctx, "s1", "k")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "s2", "k")
	assert.True(t, ok)
}

// --- Service ---

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()
	store := NewDiskStore(t.TempDir())
	cache := NewMemorySessionCache(time.Minute)
	svc := NewService(store, cache, nil, nil)

	_, err := svc.Resolve(ctx, "s1", 47, Kannada)
	require.ErrorIs(t, err, models.ErrAudioNotFound)

	require.NoError(t, store.Save(ctx, 47, Kannada, []byte("kn")))
	data, err := svc.Resolve(ctx, "s1", 47, Kannada)
	require.NoError(t, err)
	assert.Equal(t, []byte("kn"), data)

	cached, ok := cache.Get(ctx, "s1", SessionKey(47, Kannada))
	require.True(t, ok)
	assert.Equal(t, []byte("kn"), cached)
	assert.Equal(t, "audio_verse_47_kn", SessionKey(47, Kannada))
}

func TestService_SynthesizeDisabled(t *testing.T) {
	svc := NewService(NewDiskStore(t.TempDir()), NewMemorySessionCache(0), nil, nil)
	_, err := svc.Synthesize(context.Background(), "s1", verse47, English)
	assert.ErrorIs(t, err, ErrSynthesisDisabled)
}

func TestService_SynthesizeSanskritFallsBack(t *testing.T) {
	ctx := context.Background()
	store := NewDiskStore(t.TempDir())
	synth := &fakeSynth{fail: map[string]bool{"hi-IN": true}}
	svc := NewService(store, NewMemorySessionCache(time.Minute), synth, nil)

	data, err := svc.Synthesize(ctx, "s1", verse47, Sanskrit)
	require.NoError(t, err)
	assert.Equal(t, "kn-IN:"+verse47.Text, string(data))
	assert.Equal(t, []string{"hi-IN", "kn-IN"}, synth.calls)

	onDisk, err := store.Resolve(ctx, 47, Sanskrit)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)
}

// --- Generator ---

func TestGenerator_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	store := NewDiskStore(t.TempDir())
	require.NoError(t, store.Save(ctx, 1, English, []byte("existing")))

	synth := &fakeSynth{fail: map[string]bool{"kn-IN": true}}
	gen := NewGenerator(store, synth, 0, nil)
	verses := []models.Verse{
		{Verse: 1, Text: "a", Translation: "b", EnglishTranslation: "c"},
		{Verse: 2, Text: "d", Translation: "e", EnglishTranslation: "f"},
	}

	sum, err := gen.Generate(ctx, verses, []Language{English, Kannada})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 2, Generated: 1, Skipped: 1, Errors: 2}, sum)

	data, err := store.Resolve(ctx, 1, English)
	require.NoError(t, err)
	assert.Equal(t, []byte("existing"), data)
	assert.True(t, store.Exists(2, English))
	assert.False(t, store.Exists(2, Kannada))
}

func TestGenerator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewGenerator(NewDiskStore(t.TempDir()), &fakeSynth{}, 1, nil)
	_, err := gen.Generate(ctx, []models.Verse{verse47}, []Language{English})
	assert.ErrorIs(t, err, context.Canceled)
}
