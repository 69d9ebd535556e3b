package items

// AddItem adds an item id to an inventory
func AddItem(inventory *[]string, id string) {
	*inventory = append(*inventory, id)
}

// RemoveItem removes the first occurrence of id from an inventory.
// Returns true if found.
func RemoveItem(inventory *[]string, id string) bool {
	for i, held := range *inventory {
		if held == id {
			*inventory = append((*inventory)[:i], (*inventory)[i+1:]...)
			return true
		}
	}
	return false
}

// HasItem checks if an item id is in an inventory
func HasItem(inventory []string, id string) bool {
	for _, held := range inventory {
		if held == id {
			return true
		}
	}
	return false
}
