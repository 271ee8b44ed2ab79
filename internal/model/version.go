package model

// Version is reported by --version and compared by --check-update.
const Version = "0.3.0"
