package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/loomworks/loom/internal/types"
)

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ItemLine renders a one-line summary of a work item.
func ItemLine(item *types.WorkItem) string {
	var b strings.Builder
	b.WriteString(RenderMuted(shortID(item.ID)))
	b.WriteString(" ")
	if item.IsActive {
		b.WriteString(TitleStyle.Render(item.Name))
	} else {
		b.WriteString(RenderInactive(item.Name))
	}
	b.WriteString(" ")
	b.WriteString(StatusStyle(item.Status).Render(string(item.Status)))
	b.WriteString(" ")
	b.WriteString(PriorityStyle(item.Priority).Render(string(item.Priority)))
	if item.DueDate != nil {
		b.WriteString(RenderMuted(" due " + item.DueDate.Local().Format("2006-01-02")))
	}
	return b.String()
}

// ItemDetail renders a full work item view with its relations.
func ItemDetail(view *types.WorkItemView) string {
	var b strings.Builder
	b.WriteString(ItemLine(&view.WorkItem))
	b.WriteString("\n")

	if view.Shortname != nil {
		b.WriteString(RenderMuted("  shortname: ") + *view.Shortname + "\n")
	}
	if view.ParentID != nil {
		b.WriteString(RenderMuted("  parent:    ") + shortID(*view.ParentID) + "\n")
	}
	if view.Description != nil && *view.Description != "" {
		b.WriteString(RenderMuted("  description:") + "\n")
		for _, line := range strings.Split(*view.Description, "\n") {
			b.WriteString("    " + line + "\n")
		}
	}

	if len(view.Dependencies) > 0 {
		b.WriteString(HeaderStyle.Render("  depends on:") + "\n")
		for _, edge := range view.Dependencies {
			b.WriteString("    " + depLine(edge, edge.Link.DependsOnID) + "\n")
		}
	}
	if len(view.Dependents) > 0 {
		b.WriteString(HeaderStyle.Render("  depended on by:") + "\n")
		for _, edge := range view.Dependents {
			b.WriteString("    " + depLine(edge, edge.Link.WorkItemID) + "\n")
		}
	}
	if len(view.Children) > 0 {
		b.WriteString(HeaderStyle.Render("  children:") + "\n")
		for _, child := range view.Children {
			b.WriteString("    " + ItemLine(child) + "\n")
		}
	}
	return b.String()
}

func depLine(edge *types.DependencyEdge, farID string) string {
	label := shortID(farID)
	if edge.Item != nil {
		label += " " + edge.Item.Name
	}
	return label + RenderMuted(" ("+string(edge.Link.Type)+")")
}

// Tree renders a hierarchy with box-drawing connectors.
func Tree(node *types.TreeNode) string {
	var b strings.Builder
	b.WriteString(ItemLine(&node.WorkItem))
	b.WriteString("\n")
	renderChildren(&b, node.Children, "")
	return b.String()
}

func renderChildren(b *strings.Builder, children []*types.TreeNode, prefix string) {
	for i, child := range children {
		connector := TreeBranch
		childPrefix := prefix + TreePipe
		if i == len(children)-1 {
			connector = TreeLast
			childPrefix = prefix + TreeIndent
		}
		b.WriteString(prefix + RenderMuted(connector) + ItemLine(&child.WorkItem) + "\n")
		renderChildren(b, child.Children, childPrefix)
	}
}

// Actions renders a history listing, most recent first.
func Actions(actions []*types.Action) string {
	var b strings.Builder
	for _, a := range actions {
		ts := a.Timestamp.Local().Format(time.DateTime)
		line := fmt.Sprintf("%s  %s  %s",
			RenderMuted(ts),
			RenderAccent(string(a.Type)),
			a.Description)
		if a.IsUndone {
			line += BadStyle.Render(" [undone]")
		}
		b.WriteString(line + "\n")
	}
	if len(actions) == 0 {
		b.WriteString(RenderMuted("no recorded actions") + "\n")
	}
	return b.String()
}
