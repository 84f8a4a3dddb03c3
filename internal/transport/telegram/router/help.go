package router

import (
	"html"
	"strings"
)

// helpText renders Telegram-friendly help in HTML parse mode.
// It is safe to pass directly to Telegram with ParseMode="HTML".
func (m *Router) helpText(path []string) string {
	m.mu.RLock()
	root := m.root
	alias := m.alias
	m.mu.RUnlock()

	cur := root
	full := make([]string, 0, len(path))
	for _, p := range path {
		n, ok := cur.child(p)
		if !ok {
			// maybe it's an alias
			if leaf, ok2 := alias[p]; ok2 && leaf != nil && leaf.cmd != nil {
				cur = leaf
				full = splitRoute(leaf.cmd.Route)
				break
			}
			return "❓ <b>Nieznane polecenie</b>\nWpisz <code>/help</code>, aby zobaczyć listę poleceń."
		}
		cur = n
		full = append(full, p)
	}

	if len(path) == 0 {
		return m.helpTopHTML(root)
	}
	return m.helpNodeHTML(cur, full)
}

func (m *Router) helpTopHTML(root *cmdNode) string {
	var b strings.Builder
	b.WriteString("📌 <b>Dostępne polecenia</b>\n")
	for _, name := range root.childNames() {
		n, _ := root.child(name)
		if n == nil {
			continue
		}
		desc := summarizeNodeDesc(n)
		lock := ""
		if nodeIsOwnerOnly(n) {
			lock = " 🔒"
		}
		b.WriteString("• <code>/" + html.EscapeString(name) + "</code>" + lock)
		if desc != "" {
			b.WriteString(" — " + html.EscapeString(desc))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nSzczegóły: <code>/help &lt;polecenie&gt;</code>")
	return b.String()
}

func (m *Router) helpNodeHTML(cur *cmdNode, full []string) string {
	var b strings.Builder
	route := strings.Join(full, " ")

	if cur.cmd != nil {
		c := cur.cmd
		b.WriteString("📖 <b>/" + html.EscapeString(route) + "</b>\n")
		if c.Description != "" {
			b.WriteString(html.EscapeString(c.Description) + "\n")
		}
		if c.Usage != "" {
			b.WriteString("Użycie: <code>" + html.EscapeString(c.Usage) + "</code>\n")
		}
		if len(c.Aliases) > 0 {
			b.WriteString("Skróty: <code>/" + html.EscapeString(strings.Join(c.Aliases, "</code>, <code>/")) + "</code>\n")
		}
	} else {
		b.WriteString("📖 <b>/" + html.EscapeString(route) + "</b>\n")
	}

	names := cur.childNames()
	if len(names) > 0 {
		b.WriteString("\nPodpolecenia:\n")
		for _, name := range names {
			n, _ := cur.child(name)
			if n == nil {
				continue
			}
			desc := summarizeNodeDesc(n)
			b.WriteString("• <code>/" + html.EscapeString(route+" "+name) + "</code>")
			if desc != "" {
				b.WriteString(" — " + html.EscapeString(desc))
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func summarizeNodeDesc(n *cmdNode) string {
	if n.cmd != nil && n.cmd.Description != "" {
		return n.cmd.Description
	}
	// container: describe the first documented child
	for _, name := range n.childNames() {
		c, _ := n.child(name)
		if c != nil && c.cmd != nil && c.cmd.Description != "" {
			return c.cmd.Description
		}
	}
	return ""
}

// nodeIsOwnerOnly reports whether every command reachable from n is
// restricted to owners.
func nodeIsOwnerOnly(n *cmdNode) bool {
	all := true
	var walk func(x *cmdNode)
	walk = func(x *cmdNode) {
		if !all || x == nil {
			return
		}
		if x.cmd != nil && x.cmd.Access != AccessOwnerOnly {
			all = false
			return
		}
		for _, name := range x.childNames() {
			c, _ := x.child(name)
			walk(c)
		}
	}
	walk(n)
	return all
}
