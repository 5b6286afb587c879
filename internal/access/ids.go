package access

import "sort"

type idSet map[int64]struct{}

func (s idSet) add(id int64) {
	s[id] = struct{}{}
}

func (s idSet) addAll(ids []int64) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s idSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
