package scrape

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateAssetsExactStatus(t *testing.T) {
	t.Parallel()

	assets := []ResolvedAsset{
		{URL: "https://cdn.example/partial", Kind: MediaImage},
		{URL: "https://cdn.example/whole", Kind: MediaImage},
		{URL: "https://cdn.example/gone", Kind: MediaImage},
		{URL: "https://cdn.example/unreachable", Kind: MediaImage},
		{URL: "https://cdn.example/also-partial", Kind: MediaVideo},
	}
	p := &fakeProber{
		status: map[string]int{
			"https://cdn.example/partial":      http.StatusPartialContent,
			"https://cdn.example/whole":        http.StatusOK,
			"https://cdn.example/gone":         http.StatusNotFound,
			"https://cdn.example/also-partial": http.StatusPartialContent,
		},
		errs: map[string]error{
			"https://cdn.example/unreachable": errors.New("dial timeout"),
		},
	}

	// A host that honors Range answers 206 for live assets; a plain 200
	// there means an error page and is dropped.
	ad := Adapter{Name: "g", Kind: KindGallery, Resolve: &ResolveConfig{},
		Liveness: &ValidateConfig{AcceptStatus: http.StatusPartialContent}}
	got := ValidateAssets(context.Background(), p, ad, assets, 4)
	require.Len(t, got, 2)
	require.Equal(t, "https://cdn.example/partial", got[0].URL)
	require.Equal(t, "https://cdn.example/also-partial", got[1].URL)

	ad.Liveness = &ValidateConfig{AcceptStatus: http.StatusOK}
	got = ValidateAssets(context.Background(), p, ad, assets, 4)
	require.Len(t, got, 1)
	require.Equal(t, "https://cdn.example/whole", got[0].URL)
}

func TestValidateAssetsNoLivenessConfig(t *testing.T) {
	t.Parallel()

	assets := []ResolvedAsset{{URL: "https://cdn.example/a"}, {URL: "https://cdn.example/b"}}
	ad := Adapter{Name: "g", Kind: KindGallery, Resolve: &ResolveConfig{}}
	got := ValidateAssets(context.Background(), &fakeProber{}, ad, assets, 4)
	require.Equal(t, assets, got)
}
