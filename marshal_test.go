package prefs

import (
	"errors"
	"math"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-prefs/pkg/store"
)

type level int

type color string

const (
	colorRed   color = "red"
	colorGreen color = "green"
	colorBlue  color = "blue"
)

type priority int

const (
	priorityLow priority = iota + 1
	priorityHigh
)

func roundTrip[T any](t *testing.T, m Marshaller[T], value T) T {
	t.Helper()
	s := store.NewMemoryStore()
	m.Set(s, "k", &value)
	got, ok := m.Get(s, "k")
	if !ok {
		t.Fatalf("expected %#v to read back", value)
	}
	return got
}

func TestDefaultRoundTripExtremes(t *testing.T) {
	if got := roundTrip(t, Default[int64](), math.MaxInt64); got != math.MaxInt64 {
		t.Fatalf("max int64: got %d", got)
	}
	if got := roundTrip(t, Default[int64](), math.MinInt64); got != math.MinInt64 {
		t.Fatalf("min int64: got %d", got)
	}
	if got := roundTrip(t, Default[int8](), math.MinInt8); got != math.MinInt8 {
		t.Fatalf("min int8: got %d", got)
	}
	if got := roundTrip(t, Default[uint64](), math.MaxUint64); got != math.MaxUint64 {
		t.Fatalf("max uint64: got %d", got)
	}
	if got := roundTrip(t, Default[uint32](), math.MaxUint32); got != math.MaxUint32 {
		t.Fatalf("max uint32: got %d", got)
	}
	if got := roundTrip(t, Default[float64](), math.Inf(1)); !math.IsInf(got, 1) {
		t.Fatalf("+inf: got %v", got)
	}
	if got := roundTrip(t, Default[float64](), math.Inf(-1)); !math.IsInf(got, -1) {
		t.Fatalf("-inf: got %v", got)
	}
	if got := roundTrip(t, Default[float64](), math.Copysign(0, -1)); !math.Signbit(got) {
		t.Fatalf("expected negative zero to keep its sign")
	}
	if got := roundTrip(t, Default[float64](), math.SmallestNonzeroFloat64); got != math.SmallestNonzeroFloat64 {
		t.Fatalf("smallest float: got %v", got)
	}
	if got := roundTrip(t, Default[float32](), math.MaxFloat32); got != math.MaxFloat32 {
		t.Fatalf("max float32: got %v", got)
	}
	if got := roundTrip(t, Default[string](), ""); got != "" {
		t.Fatalf("empty string: got %q", got)
	}
	if got := roundTrip(t, Default[string](), "héllo, 世界 👋"); got != "héllo, 世界 👋" {
		t.Fatalf("multi-byte text: got %q", got)
	}
	if got := roundTrip(t, Default[bool](), false); got {
		t.Fatalf("false: got %v", got)
	}
	if got := roundTrip(t, Default[[]byte](), []byte{0, 1, 255}); !reflect.DeepEqual(got, []byte{0, 1, 255}) {
		t.Fatalf("bytes: got %v", got)
	}
	if got := roundTrip(t, Default[level](), level(-3)); got != -3 {
		t.Fatalf("named int: got %d", got)
	}
}

func TestDefaultTimeRoundTrip(t *testing.T) {
	zone := time.FixedZone("UTC+5:30", 5*3600+1800)
	want := time.Date(2026, 10, 14, 9, 30, 15, 123456789, zone)
	got := roundTrip(t, Default[time.Time](), want)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	_, offset := got.Zone()
	if offset != 5*3600+1800 {
		t.Fatalf("expected offset to survive, got %d", offset)
	}

	s := store.NewMemoryStore()
	s.Set("k", store.Text("not a time"))
	if _, ok := Default[time.Time]().Get(s, "k"); ok {
		t.Fatalf("expected unparsable time to read as absent")
	}
}

func TestDefaultTimeDropsLocationAndMonotonic(t *testing.T) {
	zone := time.FixedZone("IST", 5*3600+1800)
	want := time.Date(2026, 10, 14, 9, 30, 15, 0, zone)
	got := roundTrip(t, Default[time.Time](), want)
	if !got.Equal(want) {
		t.Fatalf("expected the instant to survive, got %v", got)
	}
	if got.Location() == zone || got == want {
		t.Fatalf("expected the location to be replaced by a fixed offset")
	}

	now := time.Now()
	read := roundTrip(t, Default[time.Time](), now)
	if !read.Equal(now) {
		t.Fatalf("expected %v, got %v", now, read)
	}
	if strings.Contains(read.String(), "m=") {
		t.Fatalf("expected the monotonic reading to be stripped, got %s", read)
	}
}

func TestDefaultShapeMismatchIsAbsent(t *testing.T) {
	s := store.NewMemoryStore()
	s.Set("text", store.Text("3"))
	s.Set("big", store.Int(300))
	s.Set("negative", store.Int(-1))
	s.Set("float", store.Float(1))

	if _, ok := Default[int]().Get(s, "text"); ok {
		t.Fatalf("text must not read as int")
	}
	if _, ok := Default[int8]().Get(s, "big"); ok {
		t.Fatalf("300 must not read as int8")
	}
	if _, ok := Default[uint16]().Get(s, "negative"); ok {
		t.Fatalf("-1 must not read as uint16")
	}
	if _, ok := Default[int]().Get(s, "float"); ok {
		t.Fatalf("float must not read as int")
	}
	if _, ok := Default[float64]().Get(s, "big"); ok {
		t.Fatalf("int must not read as float")
	}
	if _, ok := Default[bool]().Get(s, "missing"); ok {
		t.Fatalf("missing key must be absent")
	}
}

func TestDefaultListIsStrict(t *testing.T) {
	s := store.NewMemoryStore()
	m := Default[int]()

	values := []int{1, 2, 3}
	m.SetList(s, "k", &values)
	got, ok := m.GetList(s, "k")
	if !ok || !reflect.DeepEqual(got, values) {
		t.Fatalf("expected %v, got %v (%v)", values, got, ok)
	}

	empty := []int{}
	m.SetList(s, "empty", &empty)
	got, ok = m.GetList(s, "empty")
	if !ok || got == nil || len(got) != 0 {
		t.Fatalf("expected an empty, present list, got %#v (%v)", got, ok)
	}

	s.Set("mixed", store.List{store.Int(1), store.Text("x")})
	if _, ok := m.GetList(s, "mixed"); ok {
		t.Fatalf("expected one bad element to fail the whole read")
	}

	s.Set("single", store.Int(1))
	if _, ok := m.GetList(s, "single"); ok {
		t.Fatalf("a single value must not read as a list")
	}

	m.SetList(s, "k", nil)
	if _, ok := s.Get("k"); ok {
		t.Fatalf("nil list must remove the key")
	}
}

func TestEnumMarshaller(t *testing.T) {
	s := store.NewMemoryStore()
	m := StringEnum(colorRed, colorGreen)

	red := colorRed
	m.Set(s, "c", &red)
	if p, _ := s.Get("c"); p != store.Text("red") {
		t.Fatalf("expected raw text to be stored, got %#v", p)
	}
	if got, ok := m.Get(s, "c"); !ok || got != colorRed {
		t.Fatalf("expected red, got %v (%v)", got, ok)
	}

	s.Set("c", store.Text("purple"))
	if _, ok := m.Get(s, "c"); ok {
		t.Fatalf("unknown raw value must read as absent")
	}

	blue := colorBlue
	m.Set(s, "c", &blue)
	if _, ok := s.Get("c"); ok {
		t.Fatalf("writing a value outside the set must remove the key")
	}

	s.Set("list", store.List{store.Text("green"), store.Text("purple"), store.Int(1), store.Text("red")})
	got, ok := m.GetList(s, "list")
	if !ok || !reflect.DeepEqual(got, []color{colorGreen, colorRed}) {
		t.Fatalf("expected unknown elements to be dropped, got %v (%v)", got, ok)
	}
}

func TestIntEnumMarshaller(t *testing.T) {
	s := store.NewMemoryStore()
	m := IntEnum(priorityLow, priorityHigh)

	values := []priority{priorityHigh, priorityLow}
	m.SetList(s, "p", &values)
	if p, _ := s.Get("p"); !store.Equal(p, store.List{store.Int(2), store.Int(1)}) {
		t.Fatalf("expected raw ints, got %#v", p)
	}
	got, ok := m.GetList(s, "p")
	if !ok || !reflect.DeepEqual(got, values) {
		t.Fatalf("expected %v, got %v", values, got)
	}

	s.Set("p", store.Int(9))
	if _, ok := m.Get(s, "p"); ok {
		t.Fatalf("unknown raw int must read as absent")
	}
}

type archivedSettings struct {
	Name    string
	Weights map[string]float64
	Tags    []string
}

func TestArchivedMarshaller(t *testing.T) {
	s := store.NewMemoryStore()
	m := Archived[archivedSettings]()

	want := archivedSettings{Name: "main", Weights: map[string]float64{"a": 0.5}, Tags: []string{"x"}}
	if got := roundTrip(t, m, want); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}

	list := []archivedSettings{{Name: "one"}, {Name: "two"}}
	m.SetList(s, "list", &list)
	p, _ := s.Get("list")
	if _, ok := p.(store.Data); !ok {
		t.Fatalf("expected the list to be a single Data blob, got %T", p)
	}
	got, ok := m.GetList(s, "list")
	if !ok || len(got) != 2 || got[1].Name != "two" {
		t.Fatalf("unexpected list: %#v (%v)", got, ok)
	}

	s.Set("bad", store.Data{1, 2, 3})
	if _, ok := m.Get(s, "bad"); ok {
		t.Fatalf("garbage blob must read as absent")
	}
	s.Set("text", store.Text("x"))
	if _, ok := m.Get(s, "text"); ok {
		t.Fatalf("non-data primitive must read as absent")
	}
}

func urlMarshaller() Marshaller[*url.URL] {
	return Custom(Default[string](),
		func(u *url.URL) string { return u.String() },
		func(raw string) (*url.URL, bool) {
			u, err := url.Parse(raw)
			if err != nil || u.Scheme == "" {
				return nil, false
			}
			return u, true
		},
	)
}

func TestCustomMarshaller(t *testing.T) {
	s := store.NewMemoryStore()
	m := urlMarshaller()

	u, _ := url.Parse("https://example.com/a?b=c")
	m.Set(s, "u", &u)
	if p, _ := s.Get("u"); p != store.Text("https://example.com/a?b=c") {
		t.Fatalf("expected the intermediate to be stored, got %#v", p)
	}
	got, ok := m.Get(s, "u")
	if !ok || got.Host != "example.com" {
		t.Fatalf("unexpected url: %v (%v)", got, ok)
	}

	s.Set("u", store.Text("no scheme"))
	if _, ok := m.Get(s, "u"); ok {
		t.Fatalf("expected from() rejection to read as absent")
	}

	s.Set("list", store.List{
		store.Text("https://a.example"),
		store.Text("relative/path"),
		store.Int(4),
		store.Text("ftp://b.example"),
	})
	urls, ok := m.GetList(s, "list")
	if !ok || len(urls) != 2 || urls[0].Host != "a.example" || urls[1].Host != "b.example" {
		t.Fatalf("expected failing elements to be dropped, got %v (%v)", urls, ok)
	}
}

type address struct {
	City string `json:"city"`
}

type profile struct {
	Name    string   `json:"name"`
	Age     int64    `json:"age"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags,omitempty"`
	Avatar  []byte   `json:"avatar,omitempty"`
	Address *address `json:"address,omitempty"`
}

func TestRecordMarshaller(t *testing.T) {
	s := store.NewMemoryStore()
	m := Record[profile]()

	want := profile{
		Name:    "Ada",
		Age:     math.MaxInt64,
		Score:   1.5,
		Tags:    []string{"a", "b"},
		Avatar:  []byte{0, 1, 2},
		Address: &address{City: "London"},
	}
	m.Set(s, "p", &want)

	p, _ := s.Get("p")
	stored, ok := p.(store.Map)
	if !ok {
		t.Fatalf("expected a Map primitive, got %T", p)
	}
	if stored["name"] != store.Text("Ada") || stored["age"] != store.Int(math.MaxInt64) {
		t.Fatalf("unexpected stored layout: %#v", stored)
	}
	if _, ok := stored["address"].(store.Map); !ok {
		t.Fatalf("expected nested struct to be a Map, got %#v", stored["address"])
	}

	got, ok := m.Get(s, "p")
	if !ok || !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v (%v)", want, got, ok)
	}

	s.Set("p", store.Text("not a record"))
	if _, ok := m.Get(s, "p"); ok {
		t.Fatalf("non-map primitive must read as absent")
	}
	s.Set("p", store.Map{"name": store.Int(1)})
	if _, ok := m.Get(s, "p"); ok {
		t.Fatalf("mistyped field must read as absent")
	}
}

func TestRecordOptions(t *testing.T) {
	s := store.NewMemoryStore()
	s.Set("p", store.Map{"full_name": store.Text("Grace"), "age": store.Int(40), "extra": store.Bool(true)})

	migrated := Record(
		WithRecordMigration[profile](func(payload map[string]any) (map[string]any, error) {
			if name, ok := payload["full_name"]; ok {
				payload["name"] = name
				delete(payload, "full_name")
			}
			return payload, nil
		}),
	)
	got, ok := migrated.Get(s, "p")
	if !ok || got.Name != "Grace" || got.Age != 40 {
		t.Fatalf("expected migrated record, got %#v (%v)", got, ok)
	}

	strict := Record(WithStrictFields[profile]())
	if _, ok := strict.Get(s, "p"); ok {
		t.Fatalf("strict record must reject unknown fields")
	}

	validated := Record(
		WithRecordMigration[profile](func(payload map[string]any) (map[string]any, error) {
			delete(payload, "full_name")
			return payload, nil
		}),
		WithRecordValidation(func(p *profile) error {
			if p.Name == "" {
				return errInvalidProfile
			}
			return nil
		}),
	)
	if _, ok := validated.Get(s, "p"); ok {
		t.Fatalf("record failing validation must read as absent")
	}
}

func TestRecordRejectsNonObjects(t *testing.T) {
	s := store.NewMemoryStore()
	s.Set("n", store.Int(1))
	m := Record[int]()
	n := 5
	m.Set(s, "n", &n)
	if _, ok := s.Get("n"); ok {
		t.Fatalf("a value that is not an object cannot be stored and removes the key")
	}

	inf := profile{Name: "x", Score: math.Inf(1)}
	Record[profile]().Set(s, "p", &inf)
	if _, ok := s.Get("p"); ok {
		t.Fatalf("non-finite floats cannot be stored")
	}
}

func TestSliceOfAndMapOf(t *testing.T) {
	s := store.NewMemoryStore()

	nested := SliceOf(Default[string]())
	groups := [][]string{{"a", "b"}, {}, {"c"}}
	entry := ListValueOf(New(s), "groups", nested)
	entry.SetValue(&groups)

	p, _ := s.Get("groups")
	want := store.List{
		store.List{store.Text("a"), store.Text("b")},
		store.List{},
		store.List{store.Text("c")},
	}
	if !store.Equal(p, want) {
		t.Fatalf("expected a list of lists, got %#v", p)
	}
	got := entry.Value()
	if got == nil || !reflect.DeepEqual(*got, groups) {
		t.Fatalf("expected %v, got %v", groups, got)
	}

	s.Set("groups", store.List{store.List{store.Text("a")}, store.List{store.Int(1)}})
	if entry.Value() != nil {
		t.Fatalf("an element failing to decode fails the whole value")
	}

	counts := MapOf(Default[int64]())
	limits := map[string]int64{"daily": 10, "monthly": math.MaxInt64}
	counts.Set(s, "limits", &limits)
	gotLimits, ok := counts.Get(s, "limits")
	if !ok || !reflect.DeepEqual(gotLimits, limits) {
		t.Fatalf("expected %v, got %v (%v)", limits, gotLimits, ok)
	}

	s.Set("limits", store.Map{"daily": store.Int(1), "bad": store.Text("x")})
	if _, ok := counts.Get(s, "limits"); ok {
		t.Fatalf("a mistyped map value fails the whole read")
	}
}

var errInvalidProfile = errors.New("profile name required")
