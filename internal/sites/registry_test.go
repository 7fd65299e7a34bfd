package sites

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quarryhq/quarry/internal/scrape"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate())
}

func TestAllSortedAndIndependent(t *testing.T) {
	t.Parallel()

	ads := All()
	require.NotEmpty(t, ads)
	require.True(t, sort.SliceIsSorted(ads, func(i, j int) bool {
		return ads[i].Name < ads[j].Name
	}))

	// Mutating a returned copy must not leak into the table.
	ads[0].Name = "mutated"
	again := All()
	require.NotEqual(t, "mutated", again[0].Name)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	ad, ok := Lookup("pinfolio")
	require.True(t, ok)
	require.Equal(t, scrape.KindGallery, ad.Kind)

	_, ok = Lookup("nosuchsite")
	require.False(t, ok)
}

func TestSearchAdaptersExcludeGalleries(t *testing.T) {
	t.Parallel()

	for _, ad := range SearchAdapters() {
		require.Equal(t, scrape.KindSearch, ad.Kind, ad.Name)
	}
	require.Less(t, len(SearchAdapters()), len(All()))
}

func TestGalleryRowsCarryResolve(t *testing.T) {
	t.Parallel()

	galleries := 0
	for _, ad := range All() {
		if ad.Kind != scrape.KindGallery {
			continue
		}
		galleries++
		require.NotNil(t, ad.Resolve, ad.Name)
		require.NotEmpty(t, ad.Hosts, ad.Name)
	}
	require.Equal(t, 4, galleries)
}

func TestTableCoversEveryPaginationMode(t *testing.T) {
	t.Parallel()

	modes := make(map[scrape.PaginationMode]int)
	for _, ad := range All() {
		modes[ad.Pagination.Mode]++
	}
	for _, mode := range []scrape.PaginationMode{
		scrape.PaginateNone,
		scrape.PaginateProbe,
		scrape.PaginateRange,
		scrape.PaginateTokens,
		scrape.PaginateNextLink,
	} {
		require.Positive(t, modes[mode], string(mode))
	}
}

func TestLivenessStatusesStayPerSite(t *testing.T) {
	t.Parallel()

	statuses := make(map[string]int)
	for _, ad := range All() {
		if ad.Liveness != nil {
			statuses[ad.Name] = ad.Liveness.AcceptStatus
		}
	}
	// Sites genuinely disagree about what a ranged GET answers for a live
	// asset; both variants must stay represented.
	require.Equal(t, 200, statuses["vaultbin"])
	require.Equal(t, 206, statuses["pinfolio"])
}
