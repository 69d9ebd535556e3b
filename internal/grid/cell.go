package grid

import "strings"

// Tags layered on a cell, bottom to top.
const (
	TagGrass    = "grass"
	TagIce      = "ice"
	TagWater    = "water"
	TagWall     = "wall"
	TagDoor     = "door"
	TagDoorOpen = "door-open"
	TagStart    = "start"

	itemPrefix   = "item:"
	avatarPrefix = "avatar:"
)

// Terrain is the ground type of a cell, derived from its tags.
type Terrain int

const (
	TerrainGrass Terrain = iota
	TerrainIce
	TerrainWater
)

// String returns the tag name of the terrain
func (t Terrain) String() string {
	switch t {
	case TerrainIce:
		return TagIce
	case TerrainWater:
		return TagWater
	default:
		return TagGrass
	}
}

// Cell is one square of the board: an ordered list of tags plus occupancy.
type Cell struct {
	Images     []string `json:"images"`
	IsOccupied bool     `json:"isOccupied"`
}

// ItemTag returns the tag used to place an item on a cell.
func ItemTag(itemID string) string { return itemPrefix + itemID }

// AvatarTag returns the tag used to place an avatar on a cell.
func AvatarTag(avatar string) string { return avatarPrefix + avatar }

// Terrain returns the topmost terrain tag, grass if none is present.
func (c *Cell) Terrain() Terrain {
	for i := len(c.Images) - 1; i >= 0; i-- {
		switch c.Images[i] {
		case TagIce:
			return TerrainIce
		case TagWater:
			return TerrainWater
		case TagGrass:
			return TerrainGrass
		}
	}
	return TerrainGrass
}

func (c *Cell) has(tag string) bool {
	for _, img := range c.Images {
		if img == tag {
			return true
		}
	}
	return false
}

// IsWall reports whether the cell holds a wall
func (c *Cell) IsWall() bool { return c.has(TagWall) }

// IsDoor reports whether the cell holds a door, open or closed.
func (c *Cell) IsDoor() bool { return c.has(TagDoor) || c.has(TagDoorOpen) }

// IsClosedDoor reports whether the cell holds a closed door
func (c *Cell) IsClosedDoor() bool { return c.has(TagDoor) }

// IsOpenDoor reports whether the cell holds an open door
func (c *Cell) IsOpenDoor() bool { return c.has(TagDoorOpen) }

// IsStart reports whether the cell is a spawn point
func (c *Cell) IsStart() bool { return c.has(TagStart) }

// IsBlocking reports whether walls or a closed door stop movement here.
// Avatars are not part of this check; see IsOccupied.
func (c *Cell) IsBlocking() bool {
	return c.IsWall() || c.IsClosedDoor()
}

// Avatar returns the avatar standing on the cell, if any.
func (c *Cell) Avatar() (string, bool) {
	return c.prefixed(avatarPrefix)
}

// Item returns the item lying on the cell, if any.
func (c *Cell) Item() (string, bool) {
	return c.prefixed(itemPrefix)
}

func (c *Cell) prefixed(prefix string) (string, bool) {
	for _, img := range c.Images {
		if strings.HasPrefix(img, prefix) {
			return strings.TrimPrefix(img, prefix), true
		}
	}
	return "", false
}

func (c *Cell) removePrefixed(prefix string) {
	kept := c.Images[:0]
	for _, img := range c.Images {
		if !strings.HasPrefix(img, prefix) {
			kept = append(kept, img)
		}
	}
	c.Images = kept
}

func (c *Cell) remove(tag string) {
	kept := c.Images[:0]
	for _, img := range c.Images {
		if img != tag {
			kept = append(kept, img)
		}
	}
	c.Images = kept
}

// SetAvatar places an avatar on the cell, replacing any previous one.
func (c *Cell) SetAvatar(avatar string) {
	c.removePrefixed(avatarPrefix)
	c.Images = append(c.Images, AvatarTag(avatar))
	c.IsOccupied = true
}

// ClearAvatar removes the avatar tag and frees the cell.
func (c *Cell) ClearAvatar() {
	c.removePrefixed(avatarPrefix)
	c.IsOccupied = false
}

// SetItem places an item on the cell. Items sit below avatars.
func (c *Cell) SetItem(itemID string) {
	c.removePrefixed(itemPrefix)
	tag := ItemTag(itemID)
	for i, img := range c.Images {
		if strings.HasPrefix(img, avatarPrefix) {
			c.Images = append(c.Images[:i], append([]string{tag}, c.Images[i:]...)...)
			return
		}
	}
	c.Images = append(c.Images, tag)
}

// ClearItem removes the item tag, if any.
func (c *Cell) ClearItem() {
	c.removePrefixed(itemPrefix)
}

// ClearStart removes the spawn marker.
func (c *Cell) ClearStart() {
	c.remove(TagStart)
}

// toggleDoor swaps door and door-open. Returns the new open state.
func (c *Cell) toggleDoor() bool {
	for i, img := range c.Images {
		switch img {
		case TagDoor:
			c.Images[i] = TagDoorOpen
			return true
		case TagDoorOpen:
			c.Images[i] = TagDoor
			return false
		}
	}
	return false
}

func (c Cell) clone() Cell {
	images := make([]string, len(c.Images))
	copy(images, c.Images)
	return Cell{Images: images, IsOccupied: c.IsOccupied}
}
