package constant

const (
	Name    = "ytmusicdl"
	Version = "2.0.0"
)
