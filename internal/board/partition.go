package board

// ComputePool 计算待分配池：名单中不在视图里的人员。
//
// 保留名单原有顺序，名单中重复的 workerId 只保留第一次出现。
// 只要名单和快照各自是一致的，每个名单上的人员要么在池中，要么在视图中，二者恰居其一。
func ComputePool(roster []string, view *PlacementView) []string {
	pool := make([]string, 0, len(roster))
	seen := make(map[string]struct{}, len(roster))

	for _, workerID := range roster {
		if workerID == "" {
			continue
		}
		if _, ok := seen[workerID]; ok {
			continue
		}
		seen[workerID] = struct{}{}

		if view != nil && view.Contains(workerID) {
			continue
		}
		pool = append(pool, workerID)
	}

	return pool
}
