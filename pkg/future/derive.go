package future

// Derive returns a new Handle that mirrors src's eventual outcome exactly:
// cancelled if src is cancelled, failed with src's exception if src fails,
// otherwise resolved to project(value). Unlike waitgraph.WaitGraph (built
// to aggregate N dependencies into one, where a single cancelled dependency
// deliberately contributes nil rather than cancelling the aggregate),
// Derive is a 1:1 projection: it exists so that cancelling or failing a
// single upstream Handle is observable on everything derived from it,
// which is what lets cancellation of one node in a dependency chain cascade
// to every node downstream of it instead of being silently swallowed into a
// nil value two hops away.
func Derive(src *Handle, project func(value any) any) *Handle {
	dst := New()
	src.AddDoneCallback(func(s *Handle) {
		state, value, err := s.Snapshot()
		switch state {
		case Cancelled:
			dst.Cancel()
		case FinishedException:
			_ = dst.SetException(err)
		default:
			_ = dst.SetResult(project(value))
		}
	})
	return dst
}
