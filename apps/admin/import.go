package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) importLegacy(dir string) error {
	sum, err := cli.importer.Import(context.Background(), dir)
	if err != nil {
		return err
	}
	fmt.Println(sum)
	return nil
}
