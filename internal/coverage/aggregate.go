package coverage

// Aggregate rolls counters up the tree in place and returns root.
//
// Every node with children gets, for each metric kind present on at least one
// child, the sum of its children's counters. Report, group and package nodes
// are always derived from their children, so an empty container has no
// metrics. Class and method nodes keep their own counters for kinds no child
// carries, such as the CLASS counter of a class with methods. Running
// Aggregate on an aggregated tree changes nothing.
func Aggregate(root *Node) *Node {
	if root == nil {
		return nil
	}
	aggregate(root)
	return root
}

func aggregate(n *Node) {
	if len(n.Children) == 0 && !isContainer(n.Kind) {
		if n.Metrics == nil {
			n.Metrics = make(map[MetricKind]Counter)
		}
		return
	}

	sums := make(map[MetricKind]Counter)
	for _, c := range n.Children {
		aggregate(c)
		for kind, counter := range c.Metrics {
			sums[kind] = sums[kind].Add(counter)
		}
	}
	if !isContainer(n.Kind) {
		for kind, counter := range n.Metrics {
			if _, ok := sums[kind]; !ok {
				sums[kind] = counter
			}
		}
	}
	n.Metrics = sums
}

// isContainer reports whether nodes of kind only hold other nodes.
func isContainer(kind NodeKind) bool {
	switch kind {
	case KindReport, KindGroup, KindPackage:
		return true
	}
	return false
}
