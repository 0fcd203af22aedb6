package functions

type Repo interface {
	List() ([]*Function, error)
	Get(name string) (*Function, error)
}
