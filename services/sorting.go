package services

import (
	"cmp"
	"slices"
	"strconv"

	"bookshelf/types"
)

// LastAccessFunc returns the last-access timestamp recorded for id, or 0
type LastAccessFunc func(id string) int64

// SortDownloads returns a sorted copy of entries. The sort is stable, so
// entries with equal keys keep their relative input order.
func SortDownloads(entries []types.DownloadEntry, method types.SortMethod, lastAccess LastAccessFunc) []types.DownloadEntry {
	out := slices.Clone(entries)

	switch method {
	case types.SortAlpha:
		slices.SortStableFunc(out, byName)
	case types.SortReverseAlpha:
		slices.SortStableFunc(out, byName)
		slices.Reverse(out)
	case types.SortDownloadSize:
		slices.SortStableFunc(out, func(a, b types.DownloadEntry) int {
			return cmp.Compare(b.DownloadedCount, a.DownloadedCount)
		})
	case types.SortReverseDownloadSize:
		slices.SortStableFunc(out, func(a, b types.DownloadEntry) int {
			return cmp.Compare(a.DownloadedCount, b.DownloadedCount)
		})
	case types.SortDownloadPercentage:
		slices.SortStableFunc(out, func(a, b types.DownloadEntry) int {
			return comparePercentage(b, a)
		})
	case types.SortReverseDownloadPercentage:
		slices.SortStableFunc(out, comparePercentage)
	case types.SortLastAccess:
		sortByLastAccess(out, func(e types.DownloadEntry) string { return strconv.Itoa(e.ID) }, lastAccess)
	}
	return out
}

// SortLibrary returns a sorted copy of the library entries. Only Default,
// Alpha, ReverseAlpha and LastAccess apply; any other method keeps input order.
func SortLibrary(entries []types.ResultCached, method types.SortMethod, lastAccess LastAccessFunc) []types.ResultCached {
	out := slices.Clone(entries)

	nameOf := func(a, b types.ResultCached) int { return cmp.Compare(a.Name, b.Name) }
	switch method {
	case types.SortAlpha:
		slices.SortStableFunc(out, nameOf)
	case types.SortReverseAlpha:
		slices.SortStableFunc(out, nameOf)
		slices.Reverse(out)
	case types.SortLastAccess:
		sortByLastAccess(out, func(r types.ResultCached) string { return r.ID }, lastAccess)
	}
	return out
}

// LibrarySortMethod maps methods that make no sense for the library view to Default
func LibrarySortMethod(method types.SortMethod) types.SortMethod {
	switch method {
	case types.SortAlpha, types.SortReverseAlpha, types.SortLastAccess:
		return method
	default:
		return types.SortDefault
	}
}

func byName(a, b types.DownloadEntry) int {
	return cmp.Compare(a.Name, b.Name)
}

// comparePercentage orders ascending by count/total. An entry without a total
// compares below every finite ratio: first when ascending, last when descending.
func comparePercentage(a, b types.DownloadEntry) int {
	aKnown, bKnown := a.DownloadedTotal > 0, b.DownloadedTotal > 0
	switch {
	case !aKnown && !bKnown:
		return 0
	case !aKnown:
		return -1
	case !bKnown:
		return 1
	}
	ra := float64(a.DownloadedCount) / float64(a.DownloadedTotal)
	rb := float64(b.DownloadedCount) / float64(b.DownloadedTotal)
	return cmp.Compare(ra, rb)
}

func sortByLastAccess[E any](out []E, key func(E) string, lastAccess LastAccessFunc) {
	if lastAccess == nil {
		return
	}
	stamps := make(map[string]int64, len(out))
	for _, e := range out {
		k := key(e)
		if _, ok := stamps[k]; !ok {
			stamps[k] = lastAccess(k)
		}
	}
	slices.SortStableFunc(out, func(a, b E) int {
		return cmp.Compare(stamps[key(b)], stamps[key(a)])
	})
}
