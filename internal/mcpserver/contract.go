package mcpserver

const contractURI = "outline://rank-format"

// RankFormatContract describes how sibling order is encoded and how the
// forest is exchanged as Markdown.
const RankFormatContract = `# Outline Rank Format Contract

## Nodes

Every node has an id (UUID), an optional parent_id, a rank_key, a node_type
(Standard, Todo, InProgress, Done), text, an author and a source
(User, Agent, Application). Nodes without a parent are top-level.

## Rank keys

1. A rank_key is exactly 12 characters from 0-9 and a-z (case-insensitive).
2. It is a base-36 number; ` + "`000000000010`" + ` is 36. The largest key is
   ` + "`zzzzzzzzzzzz`" + `.
3. Siblings are ordered by the numeric value of their rank_key. Ties keep
   the order in which they were stored.
4. When you omit rank_key and position, the new node is placed after its last
   sibling, 1679616 (` + "`000000010000`" + `) past it. An only child starts at that step.
5. position is the same value as a decimal number; pass one or the other,
   never both.
6. To insert between two siblings pick any value strictly between their keys.
   If there is no room, move one of the neighbours first.

## Concurrency

get_node returns an etag. Pass it to update_node to reject the write when the
node changed since you read it.

## Markdown outlines

` + "```" + `markdown
---
title: Weekly plan      # OPTIONAL
author: ada             # OPTIONAL; default author for imported nodes
---

- Standard node
  - [ ] Todo child
  - [~] In progress child
    - [x] Done grandchild
      second line of the same node
` + "```" + `

- Each nesting level is two spaces; tabs count as one level.
- "-", "*" and "+" bullets are accepted; export writes "-".
- A "# heading" before the first bullet is used as the title when the
  frontmatter has none.
- Exported files keep sibling order; rank keys are reassigned on import.
`
