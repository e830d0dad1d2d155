// Package dashboard holds the filter state, scope resolution, delta
// classification and the view loaders behind every dashboard page.
package dashboard

import "github.com/csg33k/visits-dashboard/internal/domain"

// ResolveScope maps a page and its filter state to the query scope.
//
// A sector page always resolves to its bound sector. Otherwise a selected
// municipality wins over the sector, since it already determines the sector.
func ResolveScope(page domain.Page, st domain.FilterState) domain.Scope {
	if page.IsSectorPage() {
		return domain.BySector(page.BoundSector)
	}
	if st.Municipality != "" {
		return domain.ByMunicipality(st.Municipality)
	}
	if st.Sector != "" {
		return domain.BySector(st.Sector)
	}
	return domain.AllData()
}
