package main

type cmdPrintConfig struct{}

func (cmd *cmdPrintConfig) Execute([]string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	out, err := a.cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}
