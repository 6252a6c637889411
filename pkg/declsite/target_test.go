package declsite

//go:noinline
func exampleTarget(n int) int {
	return n*7 + 1
}

type widget struct {
	count int
}

//go:noinline
func (w *widget) Increment() {
	w.count++
}
