package application

import "github.com/vendroute/packing-player/internal/domain"

func toCommandView(cmd *domain.Command) *CommandView {
	if cmd == nil {
		return nil
	}
	return &CommandView{
		ID:            cmd.ID,
		Kind:          string(cmd.Kind),
		NarrationText: cmd.NarrationText,
		LocationName:  cmd.LocationName,
		MachineName:   cmd.MachineName,
		MachineCode:   cmd.MachineCode,
		SKUName:       cmd.SKUName,
		SKUCode:       cmd.SKUCode,
		SKUType:       cmd.SKUType,
		CoilCode:      cmd.CoilCode,
		Quantity:      cmd.Quantity,
		EntryIDs:      cmd.PickableEntryIDs,
	}
}

func toBoxViews(boxes []ChocolateBox) []ChocolateBoxView {
	if len(boxes) == 0 {
		return nil
	}
	views := make([]ChocolateBoxView, len(boxes))
	for i, box := range boxes {
		views[i] = ChocolateBoxView{ID: box.ID, Name: box.Name, Quantity: box.Quantity}
	}
	return views
}
