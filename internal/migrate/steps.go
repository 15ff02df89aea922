package migrate

import (
	"fmt"

	"pagebuilder/internal/domain"
)

// ── 0 → 1 ───────────────────────────────────────────────────────────

var flatLayoutKeys = []string{"x", "y", "width", "height", "zIndex", "rotation", "locked", "visible"}

// flatToResponsive moves the flat geometry keys of unversioned documents
// into layout.default and the single style map into styles.default.
func flatToResponsive(doc map[string]any) error {
	return eachComponent(doc, func(c map[string]any) error {
		if _, ok := c["layout"]; !ok {
			def := map[string]any{}
			for _, k := range flatLayoutKeys {
				if v, ok := c[k]; ok {
					def[k] = v
					delete(c, k)
				}
			}
			if _, ok := def["visible"]; !ok {
				def["visible"] = true
			}
			c["layout"] = map[string]any{"default": def}
		}
		if _, ok := c["styles"]; !ok {
			style, _ := c["style"].(map[string]any)
			if style == nil {
				style = map[string]any{}
			}
			c["styles"] = map[string]any{"default": style}
		}
		delete(c, "style")
		if _, ok := c["visible"]; !ok {
			c["visible"] = true
		}
		return nil
	})
}

// ── 1 → 2 ───────────────────────────────────────────────────────────

// hoistOverrides lifts layout.responsive.<tier> and styles.responsive.<tier>
// to layout.<tier> and styles.<tier>, and seeds page settings and the
// responsive config.
func hoistOverrides(doc map[string]any) error {
	err := eachComponent(doc, func(c map[string]any) error {
		for _, key := range []string{"layout", "styles"} {
			m, ok := c[key].(map[string]any)
			if !ok {
				continue
			}
			resp, ok := m["responsive"].(map[string]any)
			if !ok {
				delete(m, "responsive")
				continue
			}
			for _, tier := range []string{"tablet", "mobile"} {
				if o, ok := resp[tier].(map[string]any); ok && len(o) > 0 {
					m[tier] = o
				}
			}
			delete(m, "responsive")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if _, ok := doc["responsive"].(map[string]any); !ok {
		var def map[string]any
		if err := remarshal(domain.DefaultResponsiveConfig(), &def); err != nil {
			return err
		}
		doc["responsive"] = def
	}
	settings, ok := doc["settings"].(map[string]any)
	if !ok {
		settings = map[string]any{}
		doc["settings"] = settings
	}
	if _, ok := settings["language"]; !ok {
		settings["language"] = "en"
	}
	return nil
}

// ── 2 → 3 ───────────────────────────────────────────────────────────

// frameGroups seeds scale and direction defaults, then gives every shared
// groupId a frame. Version 2 stored group members in absolute coordinates, so
// members are rewritten relative to the frame origin.
func frameGroups(doc map[string]any) error {
	err := eachComponent(doc, func(c map[string]any) error {
		l, _ := c["layout"].(map[string]any)
		def, _ := l["default"].(map[string]any)
		if def == nil {
			return nil
		}
		if s, ok := def["scale"].(float64); !ok || s == 0 {
			def["scale"] = 1.0
		}
		return nil
	})
	if err != nil {
		return err
	}
	if settings, ok := doc["settings"].(map[string]any); ok {
		if d, _ := settings["direction"].(string); d == "" {
			settings["direction"] = string(domain.DirectionLTR)
		}
	}

	var p domain.PageSchema
	if err := remarshal(doc, &p); err != nil {
		return err
	}
	members := map[string][]int{}
	var order []string
	for i := range p.Components {
		gid := p.Components[i].GroupID
		if gid == "" {
			continue
		}
		if _, ok := p.Groups[gid]; ok {
			continue
		}
		if _, seen := members[gid]; !seen {
			order = append(order, gid)
		}
		members[gid] = append(members[gid], i)
	}
	if len(order) == 0 {
		return nil
	}
	for _, gid := range order {
		idx := members[gid]
		if len(idx) < 2 {
			// A group of one is dissolved on decode.
			continue
		}
		layouts := make([]domain.Layout, len(idx))
		for k, i := range idx {
			layouts[k] = p.Components[i].Layout.Default
		}
		x, y, w, h := domain.BoundingBox(layouts)
		f := domain.GroupFrame{ID: gid, Breakpoint: domain.BreakpointDefault, X: x, Y: y, Width: w, Height: h}
		p.PutGroup(f)
		for _, i := range idx {
			domain.Relativize(&p.Components[i], f)
		}
	}
	var out map[string]any
	if err := remarshal(&p, &out); err != nil {
		return err
	}
	clear(doc)
	for k, v := range out {
		doc[k] = v
	}
	return nil
}

func eachComponent(doc map[string]any, fn func(map[string]any) error) error {
	raw, ok := doc["components"]
	if !ok || raw == nil {
		doc["components"] = []any{}
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("%w: components is %T", ErrMalformed, raw)
	}
	for i, e := range list {
		c, ok := e.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: component %d is %T", ErrMalformed, i, e)
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}
