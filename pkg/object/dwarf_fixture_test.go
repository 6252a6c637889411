package object

//go:noinline
func dwarfFixtureTarget(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
