package layout

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-layout/internal/affordance"
	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
)

// #region params
// paramsFor resolves the primary-content parameters: the action table row
// when action is valid, otherwise the device/density heuristic.
func paramsFor(domain intent.Domain, in intent.Intent, action int) Params {
	if Valid(action) {
		v := actionTables[domain][action]
		return Params{Variation: true, PrimaryCount: v.Count, ItemSize: v.Size, Columns: v.Columns, Style: v.Style}
	}
	p := heuristic(domain, deviceOf(in), densityOf(in))
	switch deviceOf(in) {
	case intent.DeviceMobile:
		p.Style = "stack"
	case intent.DeviceTablet:
		p.Style = "split"
	default:
		p.Style = "grid"
	}
	return p
}

func heuristic(domain intent.Domain, device intent.Device, density intent.Density) Params {
	p := Params{ItemSize: densitySize(density)}
	switch domain {
	case intent.DomainEcommerce:
		switch device {
		case intent.DeviceMobile:
			p.PrimaryCount, p.Columns = 4, 2
		case intent.DeviceTablet:
			p.PrimaryCount, p.Columns = 6, 3
		default:
			p.PrimaryCount = byDensity(density, 12, 8, 6)
			p.Columns = 4
		}
	case intent.DomainBlog:
		switch device {
		case intent.DeviceMobile:
			p.PrimaryCount, p.Columns = 3, 1
		case intent.DeviceTablet:
			p.PrimaryCount, p.Columns = 4, 2
		default:
			p.PrimaryCount = byDensity(density, 8, 6, 4)
			p.Columns = byDensity(density, 3, 2, 2)
		}
	default:
		p.PrimaryCount = byDensity(density, 6, 4, 3)
		switch device {
		case intent.DeviceMobile:
			p.PrimaryCount, p.Columns = 2, 1
		case intent.DeviceTablet:
			p.PrimaryCount, p.Columns = min(p.PrimaryCount, 4), 2
		default:
			p.Columns = byDensity(density, 4, 3, 2)
		}
	}
	return p
}

func byDensity(d intent.Density, compact, medium, cozy int) int {
	switch d {
	case intent.DensityCompact:
		return compact
	case intent.DensityCozy:
		return cozy
	default:
		return medium
	}
}

func densitySize(d intent.Density) string {
	switch d {
	case intent.DensityCompact:
		return SizeSmall
	case intent.DensityCozy:
		return SizeLarge
	default:
		return SizeMedium
	}
}

// deviceOf treats an unknown device as desktop.
func deviceOf(in intent.Intent) intent.Device {
	if in.Device == intent.DeviceUnknown {
		return intent.DeviceDesktop
	}
	return in.Device
}

// densityOf treats an unknown density as medium.
func densityOf(in intent.Intent) intent.Density {
	if in.Density == intent.DensityUnknown {
		return intent.DensityMedium
	}
	return in.Density
}

// #endregion params

// #region regions
// regionsFor lists the regions of a domain, highest priority first within
// each band. Device adjustments (dropping secondary regions on mobile) only
// apply on the heuristic path.
func regionsFor(domain intent.Domain, in intent.Intent, p Params) []Region {
	compact := !p.Variation && deviceOf(in) == intent.DeviceMobile
	goal := in.Goal
	var rs []Region

	switch domain {
	case intent.DomainEcommerce:
		rs = append(rs, Region{Name: "navbar", Size: SizeFull, Priority: 10})
		if goal == intent.GoalBrowse || goal == intent.GoalUnknown {
			rs = append(rs, Region{Name: "hero", Size: SizeLarge, Priority: 7})
		}
		if (goal == intent.GoalBrowse || goal == intent.GoalCompare) && !compact {
			rs = append(rs, Region{Name: "filters", Size: SizeSmall, Priority: 6})
		}
		rs = append(rs, Region{Name: "products", Size: p.ItemSize, Priority: 9, Count: p.PrimaryCount, Columns: p.Columns})
		if goal == intent.GoalCheckout {
			rs = append(rs, Region{Name: "cart-summary", Size: SizeMedium, Priority: 8})
		}
		if goal == intent.GoalCompare {
			rs = append(rs, Region{Name: "compare-table", Size: SizeLarge, Priority: 8})
		}
		if (goal == intent.GoalBrowse || goal == intent.GoalCheckout) && !compact {
			rs = append(rs, Region{Name: "recommendations", Size: SizeMedium, Priority: 4})
		}

	case intent.DomainBlog:
		rs = append(rs, Region{Name: "header", Size: SizeFull, Priority: 10})
		if goal == intent.GoalRead {
			rs = append(rs, Region{Name: "article", Size: SizeXLarge, Priority: 9})
			rs = append(rs, Region{Name: "feed", Size: p.ItemSize, Priority: 6, Count: p.PrimaryCount, Columns: p.Columns})
		} else {
			rs = append(rs, Region{Name: "feed", Size: p.ItemSize, Priority: 9, Count: p.PrimaryCount, Columns: p.Columns})
		}
		if !compact {
			rs = append(rs, Region{Name: "sidebar", Size: SizeSmall, Priority: 5})
		}
		rs = append(rs, Region{Name: "newsletter", Size: SizeSmall, Priority: 3})

	default:
		rs = append(rs, Region{Name: "header", Size: SizeFull, Priority: 10})
		for i := 1; i <= p.PrimaryCount; i++ {
			rs = append(rs, Region{Name: fmt.Sprintf("kpi-%d", i), Size: p.ItemSize, Priority: 9})
		}
		rs = append(rs, Region{Name: "chart-main", Size: SizeLarge, Priority: 8})
		if goal != intent.GoalKPIFocus {
			rs = append(rs, Region{Name: "activity-feed", Size: SizeMedium, Priority: 5})
		}
		if (goal == intent.GoalCompare || goal == intent.GoalBrowse) && !compact {
			rs = append(rs, Region{Name: "table", Size: SizeLarge, Priority: 6})
		}
	}
	return rs
}

// slotsFor derives one slot per region.
func slotsFor(regions []Region) []Slot {
	slots := make([]Slot, 0, len(regions))
	for _, r := range regions {
		tier, ok := sizeTiers[r.Size]
		if !ok {
			tier = sizeTiers[SizeMedium]
		}
		slots = append(slots, Slot{
			Name:         r.Name,
			Capabilities: affordance.InferCapabilities(r.Name),
			Size:         r.Size,
			Priority:     r.Priority,
			MinWidth:     tier.MinWidth,
			MaxWidth:     tier.MaxWidth,
			AspectRatio:  tier.AspectRatio,
			Count:        r.Count,
		})
	}
	return slots
}

// #endregion regions
