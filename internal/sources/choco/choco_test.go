package choco

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/softfinder/softfinder-go/internal/cache"
	"github.com/softfinder/softfinder-go/internal/cmdrunner"
	"github.com/softfinder/softfinder-go/internal/packages"
)

// fakeRunner records invocations and replays canned output.
type fakeRunner struct {
	calls  int32
	output string
	err    error
	delay  time.Duration
	args   [][]string
}

func (f *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	f.args = append(f.args, append([]string{name}, args...))
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", name, cmdrunner.ErrTimeout)
		}
	}
	return []byte(f.output), f.err
}

func newAdapter(r *fakeRunner, timeout time.Duration) *Adapter {
	return New(Options{Binary: "choco", Timeout: timeout, Runner: r},
		cache.NewTTL[packages.Page]("secondary-repo", time.Minute), zap.NewNop())
}

func numberedOutput(n int) string {
	var b strings.Builder
	b.WriteString("Chocolatey v2.2.2\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "pkg%02d|1.%d.0\n", i, i)
	}
	fmt.Fprintf(&b, "\n%d packages found.\n", n)
	return b.String()
}

func TestParseSearchOutput(t *testing.T) {
	out := "Chocolatey v2.2.2\n\nvlc|3.0.20\nvlc-nightly|4.0.0.20240101\n|orphan\nbroken line\n2 packages found.\n"

	records := parseSearchOutput([]byte(out))
	require.Len(t, records, 2)

	assert.Equal(t, "vlc", records[0].Name)
	assert.Equal(t, "vlc", records[0].PackageID)
	assert.Equal(t, "Unknown", records[0].Publisher)
	assert.Equal(t, packages.SourceSecondary, records[0].Source)
	assert.Equal(t, []string{"3.0.20"}, records[0].Versions)
	assert.Equal(t, "3.0.20", records[0].LatestVersion)
	assert.Equal(t, "choco install vlc -y", records[0].InstallCommand)
	assert.Equal(t, "vlc-nightly", records[1].PackageID)
}

func TestParseLines_SummaryVariants(t *testing.T) {
	for _, line := range []string{"1 package found.", "12 packages found", "0 Packages Found."} {
		assert.Empty(t, parseLines([]byte(line)), line)
	}
}

func TestSearch_InvokesCLI(t *testing.T) {
	r := &fakeRunner{output: "vlc|3.0.20\n"}
	a := newAdapter(r, time.Second)

	page, err := a.Search(context.Background(), "vlc player", 0, 24)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, [][]string{{"choco", "search", "vlc player", "--limit-output"}}, r.args)
}

func TestSearch_PagesServedFromOneRun(t *testing.T) {
	r := &fakeRunner{output: numberedOutput(30)}
	a := newAdapter(r, time.Second)

	first, err := a.Search(context.Background(), "pkg", 0, 24)
	require.NoError(t, err)
	require.Len(t, first.Records, 24)
	assert.Equal(t, 30, first.Total)
	assert.Equal(t, "pkg00", first.Records[0].PackageID)

	second, err := a.Search(context.Background(), "PKG", 1, 24)
	require.NoError(t, err)
	require.Len(t, second.Records, 6)
	assert.Equal(t, 30, second.Total)
	assert.Equal(t, "pkg24", second.Records[0].PackageID)

	beyond, err := a.Search(context.Background(), "pkg", 5, 24)
	require.NoError(t, err)
	assert.Empty(t, beyond.Records)
	assert.Equal(t, 30, beyond.Total)

	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))
}

func TestSearch_HugePageIsEmpty(t *testing.T) {
	r := &fakeRunner{output: "git|2.44.0\ngit.install|2.44.0\n"}
	a := newAdapter(r, time.Second)

	page, err := a.Search(context.Background(), "git", math.MaxInt64/24+1, 24)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, 2, page.Total)
}

func TestSearch_Timeout(t *testing.T) {
	r := &fakeRunner{output: "vlc|3.0.20\n", delay: time.Second}
	a := newAdapter(r, 20*time.Millisecond)

	page, err := a.Search(context.Background(), "vlc", 0, 24)
	require.Error(t, err)
	assert.ErrorIs(t, err, cmdrunner.ErrTimeout)
	assert.Contains(t, err.Error(), "timed out")
	assert.Empty(t, page.Records)

	for _, c := range a.Caches() {
		assert.Equal(t, 0, c.GetStats().TotalEntries)
	}
}

func TestSearch_NonZeroExit(t *testing.T) {
	r := &fakeRunner{err: &cmdrunner.ExitError{Name: "choco", Code: 1, Stderr: "not installed"}}
	a := newAdapter(r, time.Second)

	_, err := a.Search(context.Background(), "vlc", 0, 24)
	require.Error(t, err)
	var exitErr *cmdrunner.ExitError
	assert.True(t, errors.As(err, &exitErr))

	// Failures are retried on the next call
	_, _ = a.Search(context.Background(), "vlc", 0, 24)
	assert.Equal(t, int32(2), atomic.LoadInt32(&r.calls))
}

func TestSearch_EmptyQuery(t *testing.T) {
	r := &fakeRunner{}
	a := newAdapter(r, time.Second)

	_, err := a.Search(context.Background(), " ", 0, 24)
	assert.ErrorIs(t, err, packages.ErrEmptyQuery)
	assert.Equal(t, int32(0), atomic.LoadInt32(&r.calls))
}

func TestVersions(t *testing.T) {
	r := &fakeRunner{output: "vlc|3.0.18\nvlc|3.0.20\nvlc|3.0.9\nvlc.install|3.0.20\n"}
	a := newAdapter(r, time.Second)

	versions, err := a.Versions(context.Background(), "VLC")
	require.NoError(t, err)
	assert.Equal(t, []string{"3.0.20", "3.0.18", "3.0.9"}, versions)
	assert.Equal(t, []string{"choco", "search", "VLC", "--exact", "--all-versions", "--limit-output"}, r.args[0])

	versions[0] = "mutated"
	again, err := a.Versions(context.Background(), "vlc")
	require.NoError(t, err)
	assert.Equal(t, "3.0.20", again[0])
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))

	a.ClearCache()
	_, err = a.Versions(context.Background(), "vlc")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&r.calls))
}

func TestVersions_NotFound(t *testing.T) {
	a := newAdapter(&fakeRunner{output: "0 packages found.\n"}, time.Second)

	_, err := a.Versions(context.Background(), "nothing")
	assert.Error(t, err)

	_, err = a.Versions(context.Background(), "")
	assert.ErrorIs(t, err, packages.ErrEmptyPackageID)
}

func TestCommand(t *testing.T) {
	assert.Equal(t, "", Command("", ""))
	assert.Equal(t, "choco install 7zip -y", Command("7zip", ""))
	assert.Equal(t, "choco install 7zip -y --version=23.1.0", Command("7zip", "23.1.0"))
}

func TestSlicePage_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 80).Draw(t, "n")
		limit := rapid.IntRange(1, 30).Draw(t, "limit")

		full := packages.Page{Records: parseSearchOutput([]byte(numberedOutput(n))), Total: n}

		seen := 0
		for page := 0; page*limit < n+limit; page++ {
			got := slicePage(full, page, limit)
			if got.Total != n {
				t.Fatalf("total %d, want %d", got.Total, n)
			}
			if len(got.Records) > limit {
				t.Fatalf("page %d has %d records, limit %d", page, len(got.Records), limit)
			}
			for i, r := range got.Records {
				want := fmt.Sprintf("pkg%02d", page*limit+i)
				if r.PackageID != want {
					t.Fatalf("page %d index %d is %s, want %s", page, i, r.PackageID, want)
				}
			}
			seen += len(got.Records)
		}
		if seen != n {
			t.Fatalf("pages covered %d records, want %d", seen, n)
		}

		huge := rapid.IntRange(math.MaxInt/limit-1, math.MaxInt).Draw(t, "hugePage")
		got := slicePage(full, huge, limit)
		if len(got.Records) != 0 || got.Total != n {
			t.Fatalf("page %d returned %d records total %d, want 0 records total %d", huge, len(got.Records), got.Total, n)
		}
	})
}
