package styles

const (
	// MinListHeight keeps at least a few timeline rows on screen.
	MinListHeight = 3

	// MinMapHeight is the smallest map panel worth drawing (border plus one row).
	MinMapHeight = 3
)

// Split divides the body between the map panel (top) and the timeline list.
func Split(bodyHeight int, mapPercent float64) (mapHeight, listHeight int) {
	if bodyHeight <= 0 {
		return 0, 0
	}
	mapHeight = int(float64(bodyHeight)*mapPercent + 0.5)
	if mapHeight < MinMapHeight {
		mapHeight = 0
	}
	if bodyHeight-mapHeight < MinListHeight {
		mapHeight = bodyHeight - MinListHeight
		if mapHeight < MinMapHeight {
			mapHeight = 0
		}
	}
	return mapHeight, bodyHeight - mapHeight
}

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
