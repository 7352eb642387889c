package data

import (
	_ "embed"
)

//go:embed initdb/mongo/001-users.js
var InitdbMongoUsers string
