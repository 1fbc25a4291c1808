package utils

// BLASBackend names the implementation behind gonum's blas64, replaced when built with the netlib tag
var BLASBackend = "gonum"
