package web

import (
	"net/http"

	"github.com/markbates/pkger"
)

// FS serves the embedded templates and static assets.
var FS http.FileSystem = pkger.Dir("/web")
