package model

// Section is the most recent version section of a changelog.
type Section struct {
	Version string
	// Body holds the lines after the version heading, without surrounding blank lines.
	Body string
	// Full holds every line from the top of the file up to the sentinel.
	Full string
}

// Release is a hosted release record keyed by its tag.
type Release struct {
	Tag        string
	Title      string
	Notes      string
	Prerelease bool
	Latest     bool
	Assets     []string
}

// ReleaseEdit lists the fields changed on an existing release. An empty Tag
// keeps the release on its current tag. Assets are uploaded, replacing files
// with the same name.
type ReleaseEdit struct {
	Tag    string
	Title  string
	Notes  string
	Latest bool
	Assets []string
}
