package object

// monoArchive wraps a buffer that holds exactly one object. Parsing is
// deferred until the object is requested.
type monoArchive struct {
	format FileFormat
	data   []byte
}

func newMonoArchive(format FileFormat, data []byte) *monoArchive {
	return &monoArchive{format: format, data: data}
}

func (a *monoArchive) objectCount() int { return 1 }

func (a *monoArchive) objectByIndex(int) (*Object, error) {
	return parseObject(a.format, a.data)
}
