package model

type KV struct {
	Key   string
	Value string
}
